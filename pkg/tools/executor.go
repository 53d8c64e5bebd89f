package tools

import (
	"context"
	"encoding/json"
)

// Definition describes a tool offered to the model.
type Definition struct {
	// Name is the tool function name (e.g., "execute_python").
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Parameters is the JSON Schema of the tool's arguments.
	Parameters json.RawMessage
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	// ID is the unique call identifier (from the model, e.g., "call_abc123").
	ID string

	// Name is the tool function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Output is the tool output content (text).
	Output string

	// IsError indicates that the output is an error message.
	IsError bool
}

// Executor executes tool calls. The interpreter adapter is the primary
// implementation; the engine works against this interface so tests can
// script tool behavior.
type Executor interface {
	// Tools returns the definitions of the tools this executor offers.
	Tools() []Definition

	// CanExecute checks if this executor can handle the given tool name.
	CanExecute(toolName string) bool

	// Execute runs the tool and returns the result. Tool-level failures
	// are reported via ToolResult.IsError; an error return means the
	// executor itself could not run the call.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
}
