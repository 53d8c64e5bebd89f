package openaicompat

import (
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/tools"
)

// translateRequest converts a provider request to the Chat Completions
// format. The system prompt becomes the first message.
func translateRequest(req *provider.Request) *ChatCompletionRequest {
	messages := make([]ChatMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		msg := ChatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ChatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: ChatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		messages = append(messages, msg)
	}

	var chatTools []ChatTool
	for _, def := range req.Tools {
		chatTools = append(chatTools, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	return &ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Tools:       chatTools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// translateResponse converts a Chat Completions response to a provider
// response.
func translateResponse(resp *ChatCompletionResponse) *provider.Response {
	out := &provider.Response{StopReason: provider.StopEndTurn}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Text = choice.Message.Content

		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, tools.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		switch choice.FinishReason {
		case "tool_calls":
			out.StopReason = provider.StopToolUse
		case "length":
			out.StopReason = provider.StopMaxTokens
		}
	}

	if resp.Usage != nil {
		out.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	return out
}
