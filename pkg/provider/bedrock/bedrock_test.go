package bedrock

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"

	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/tools"
)

func TestTranslateMessages(t *testing.T) {
	msgs := translateMessages([]provider.Message{
		{Role: provider.RoleUser, Content: "Sum the totals"},
		{Role: provider.RoleAssistant, ToolCalls: []tools.ToolCall{
			{ID: "tool_1", Name: "execute_python", Arguments: `{"code": "df.sum()"}`},
		}},
		{Role: provider.RoleTool, Content: "42", ToolCallID: "tool_1"},
	})

	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	if msgs[0].Role != types.ConversationRoleUser {
		t.Errorf("msgs[0].Role = %q, want user", msgs[0].Role)
	}

	if msgs[1].Role != types.ConversationRoleAssistant {
		t.Errorf("msgs[1].Role = %q, want assistant", msgs[1].Role)
	}
	toolUse, ok := msgs[1].Content[0].(*types.ContentBlockMemberToolUse)
	if !ok {
		t.Fatalf("msgs[1].Content[0] = %T, want tool use block", msgs[1].Content[0])
	}
	if aws.ToString(toolUse.Value.Name) != "execute_python" {
		t.Errorf("tool name = %q", aws.ToString(toolUse.Value.Name))
	}

	// Tool observations travel back as user messages with toolResult.
	if msgs[2].Role != types.ConversationRoleUser {
		t.Errorf("msgs[2].Role = %q, want user", msgs[2].Role)
	}
	result, ok := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	if !ok {
		t.Fatalf("msgs[2].Content[0] = %T, want tool result block", msgs[2].Content[0])
	}
	if aws.ToString(result.Value.ToolUseId) != "tool_1" {
		t.Errorf("ToolUseId = %q, want tool_1", aws.ToString(result.Value.ToolUseId))
	}
}

func TestTranslateTools(t *testing.T) {
	cfg := translateTools([]tools.Definition{{
		Name:        "execute_python",
		Description: "Run Python",
		Parameters:  json.RawMessage(`{"type": "object", "required": ["code"]}`),
	}})

	if len(cfg.Tools) != 1 {
		t.Fatalf("len(Tools) = %d, want 1", len(cfg.Tools))
	}
	spec, ok := cfg.Tools[0].(*types.ToolMemberToolSpec)
	if !ok {
		t.Fatalf("Tools[0] = %T, want tool spec", cfg.Tools[0])
	}
	if aws.ToString(spec.Value.Name) != "execute_python" {
		t.Errorf("Name = %q", aws.ToString(spec.Value.Name))
	}
	if _, ok := spec.Value.InputSchema.(*types.ToolInputSchemaMemberJson); !ok {
		t.Errorf("InputSchema = %T, want JSON schema member", spec.Value.InputSchema)
	}
}

func TestTranslateOutputText(t *testing.T) {
	out := &bedrockruntime.ConverseOutput{
		StopReason: types.StopReasonEndTurn,
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: "The total is 42."},
				},
			},
		},
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}

	resp, err := translateOutput(out)
	if err != nil {
		t.Fatalf("translateOutput failed: %v", err)
	}
	if resp.Text != "The total is 42." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.StopReason != provider.StopEndTurn {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
}

func TestTranslateOutputToolUse(t *testing.T) {
	out := &bedrockruntime.ConverseOutput{
		StopReason: types.StopReasonToolUse,
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolUse{
						Value: types.ToolUseBlock{
							ToolUseId: aws.String("tool_1"),
							Name:      aws.String("execute_python"),
							Input:     document.NewLazyDocument(map[string]any{"code": "df.head()"}),
						},
					},
				},
			},
		},
	}

	resp, err := translateOutput(out)
	if err != nil {
		t.Fatalf("translateOutput failed: %v", err)
	}
	if resp.StopReason != provider.StopToolUse {
		t.Errorf("StopReason = %q, want %q", resp.StopReason, provider.StopToolUse)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(resp.ToolCalls))
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(resp.ToolCalls[0].Arguments), &args); err != nil {
		t.Fatalf("arguments not JSON: %v", err)
	}
	if args["code"] != "df.head()" {
		t.Errorf("args = %v", args)
	}
}
