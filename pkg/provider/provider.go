package provider

import (
	"context"

	"github.com/tabletalk-dev/tabletalk/pkg/tools"
)

// Provider abstracts an LLM inference backend. The interface is
// protocol-agnostic: each adapter handles its own backend protocol
// (Chat Completions, Bedrock Converse) internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "bedrock", "openai").
	Name() string

	// Complete performs one non-streaming inference turn.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Message roles in the conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Stop reasons reported by a completion.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// Request is the backend-facing completion request. It contains only
// what the provider needs, stripped of transport concerns.
type Request struct {
	// Model is the backend model identifier.
	Model string

	// System is the system prompt, sent in whatever form the backend
	// expects.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []Message

	// Tools are the tool definitions offered to the model.
	Tools []tools.Definition

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64

	// MaxTokens caps the completion length when non-nil.
	MaxTokens *int
}

// Message represents one conversation turn.
type Message struct {
	// Role is one of RoleUser, RoleAssistant, RoleTool.
	Role string

	// Content is the message text. For tool messages it is the tool
	// observation.
	Content string

	// ToolCalls holds the calls an assistant message requested.
	ToolCalls []tools.ToolCall

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string
}

// Response is the backend's completion for one turn.
type Response struct {
	// Text is the assistant's textual output.
	Text string

	// ToolCalls are the tool invocations the model requested, empty
	// when the model produced a final answer.
	ToolCalls []tools.ToolCall

	// StopReason reports why the completion ended.
	StopReason string

	// Usage holds token accounting when the backend reports it.
	Usage Usage
}

// Usage holds token counts for a completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
