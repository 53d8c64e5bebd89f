// Package interpreter exposes a sandbox session to the model as
// execute_python and execute_command tools. An adapter is bound to one
// session; the engine builds a fresh one per request.
package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tabletalk-dev/tabletalk/pkg/sandbox"
	"github.com/tabletalk-dev/tabletalk/pkg/tools"
)

// Tool names offered to the model.
const (
	ToolExecutePython  = "execute_python"
	ToolExecuteCommand = "execute_command"
)

// Adapter executes interpreter tools against a single sandbox session.
type Adapter struct {
	client        sandbox.API
	interpreterID string
	sessionID     string
}

var _ tools.Executor = (*Adapter)(nil)

// New creates an adapter bound to the given sandbox session.
func New(client sandbox.API, interpreterID, sessionID string) *Adapter {
	return &Adapter{
		client:        client,
		interpreterID: interpreterID,
		sessionID:     sessionID,
	}
}

// Tools returns the tool definitions for the sandbox session.
func (a *Adapter) Tools() []tools.Definition {
	pythonParams, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python code to execute",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "One-line summary of what the code does",
			},
		},
		"required": []string{"code"},
	})

	commandParams, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to run",
			},
		},
		"required": []string{"command"},
	})

	return []tools.Definition{
		{
			Name:        ToolExecutePython,
			Description: "Execute Python code in the sandbox. The dataset CSV files are in the working directory. Use pandas to load and analyze them, and save any charts under the charts/ directory.",
			Parameters:  pythonParams,
		},
		{
			Name:        ToolExecuteCommand,
			Description: "Run a shell command in the sandbox, e.g. to inspect files or install a package.",
			Parameters:  commandParams,
		},
	}
}

// CanExecute checks if this adapter handles the given tool name.
func (a *Adapter) CanExecute(toolName string) bool {
	return toolName == ToolExecutePython || toolName == ToolExecuteCommand
}

// Execute runs a tool call inside the bound sandbox session.
func (a *Adapter) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	if a.sessionID == "" {
		return nil, sandbox.ErrNotStarted
	}

	var op string
	var args map[string]any

	switch call.Name {
	case ToolExecutePython:
		var parsed struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &parsed); err != nil {
			return &tools.ToolResult{
				CallID:  call.ID,
				Output:  fmt.Sprintf("invalid arguments: %v", err),
				IsError: true,
			}, nil
		}

		code := parsed.Code
		if parsed.Description != "" {
			code = "# " + parsed.Description + "\n" + code
		}
		op = sandbox.OpExecuteCode
		args = map[string]any{
			"code":         code,
			"language":     "python",
			"clearContext": false,
		}

	case ToolExecuteCommand:
		var parsed struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &parsed); err != nil {
			return &tools.ToolResult{
				CallID:  call.ID,
				Output:  fmt.Sprintf("invalid arguments: %v", err),
				IsError: true,
			}, nil
		}
		op = sandbox.OpExecuteCommand
		args = map[string]any{"command": parsed.Command}

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}

	slog.Debug("executing sandbox tool",
		"tool", call.Name, "sandbox_id", a.sessionID)

	res, err := a.client.Invoke(ctx, a.interpreterID, a.sessionID, op, args)
	if err != nil {
		return &tools.ToolResult{
			CallID:  call.ID,
			Output:  fmt.Sprintf("sandbox invocation failed: %v", err),
			IsError: true,
		}, nil
	}

	return &tools.ToolResult{
		CallID:  call.ID,
		Output:  res.JSON(),
		IsError: res.IsError,
	}, nil
}
