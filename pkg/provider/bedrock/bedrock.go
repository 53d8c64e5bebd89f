// Package bedrock implements provider.Provider on the Amazon Bedrock
// Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/tools"
)

// Client calls the Bedrock Converse API.
type Client struct {
	runtime *bedrockruntime.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a Bedrock client using the default AWS credential chain.
func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Client{runtime: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "bedrock"
}

// Complete performs one Converse turn.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.Model),
		Messages: translateMessages(req.Messages),
	}

	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	if len(req.Tools) > 0 {
		input.ToolConfig = translateTools(req.Tools)
	}

	inferenceCfg := &types.InferenceConfiguration{}
	hasInference := false
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		inferenceCfg.Temperature = &temp
		hasInference = true
	}
	if req.MaxTokens != nil {
		maxTokens := int32(*req.MaxTokens)
		inferenceCfg.MaxTokens = &maxTokens
		hasInference = true
	}
	if hasInference {
		input.InferenceConfig = inferenceCfg
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("bedrock converse failed: %s", err))
	}

	return translateOutput(out)
}

// Close is a no-op; the SDK client holds no long-lived connections.
func (c *Client) Close() error {
	return nil
}

// translateMessages converts conversation turns to Converse messages.
// Tool observations become toolResult content blocks on user messages,
// which is how Converse expects them back.
func translateMessages(messages []provider.Message) []types.Message {
	var out []types.Message

	for _, m := range messages {
		switch m.Role {
		case provider.RoleAssistant:
			var content []types.ContentBlock
			if m.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(args),
					},
				})
			}
			out = append(out, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: content,
			})

		case provider.RoleTool:
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(m.ToolCallID),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: m.Content},
							},
						},
					},
				},
			})

		default:
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: m.Content},
				},
			})
		}
	}

	return out
}

// translateTools converts tool definitions to a Converse tool
// configuration.
func translateTools(defs []tools.Definition) *types.ToolConfiguration {
	cfg := &types.ToolConfiguration{}

	for _, def := range defs {
		var schema map[string]any
		if err := json.Unmarshal(def.Parameters, &schema); err != nil {
			schema = map[string]any{"type": "object"}
		}

		cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(def.Name),
				Description: aws.String(def.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schema),
				},
			},
		})
	}

	return cfg
}

// translateOutput converts a Converse response to a provider response.
func translateOutput(out *bedrockruntime.ConverseOutput) (*provider.Response, error) {
	resp := &provider.Response{StopReason: provider.StopEndTurn}

	switch out.StopReason {
	case types.StopReasonToolUse:
		resp.StopReason = provider.StopToolUse
	case types.StopReasonMaxTokens:
		resp.StopReason = provider.StopMaxTokens
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, api.NewUpstreamError("bedrock returned no message output")
	}

	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			if resp.Text != "" {
				resp.Text += "\n"
			}
			resp.Text += b.Value

		case *types.ContentBlockMemberToolUse:
			args := "{}"
			if b.Value.Input != nil {
				var parsed any
				if err := b.Value.Input.UnmarshalSmithyDocument(&parsed); err == nil {
					if data, err := json.Marshal(parsed); err == nil {
						args = string(data)
					}
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, tools.ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
		}
	}

	if out.Usage != nil {
		resp.Usage = provider.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	return resp, nil
}
