package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/observability"
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/tools"
	"github.com/tabletalk-dev/tabletalk/pkg/tools/interpreter"
)

// Run answers a question about the referenced datasets. It loads the
// datasets, ensures a sandbox session for the runtime session key, and
// drives the tool-calling loop until the model produces a final answer
// or the iteration budget runs out.
func (e *Engine) Run(ctx context.Context, prompt, sessionKey string, refs map[string]string) (*Result, error) {
	tables, err := e.loader.Load(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, api.NewValidationError("s3_urls", "no datasets could be loaded")
	}

	lease, err := e.manager.Ensure(ctx, sessionKey, tables)
	if err != nil {
		return nil, err
	}

	executor := interpreter.New(e.client, lease.InterpreterID, lease.SessionID)

	result, err := e.runLoop(ctx, prompt, lease.Tables, executor)
	lease.Finish(ctx, err != nil)
	if err != nil {
		return nil, err
	}

	result.DataframesLoaded = lease.Tables

	charts, err := e.DiscoverCharts(ctx, sessionKey)
	if err != nil {
		// Chart discovery is best effort; the analysis itself succeeded.
		slog.Warn("chart discovery failed", "session_key", sessionKey, "error", err)
		charts = []string{}
	}
	result.Charts = charts

	return result, nil
}

// runLoop drives the propose-observe cycle against the provider.
func (e *Engine) runLoop(ctx context.Context, prompt string, tableNames []string, executor tools.Executor) (*Result, error) {
	temp := e.cfg.Temperature

	req := &provider.Request{
		Model:       e.cfg.Model,
		System:      systemPrompt(e.now()),
		Tools:       executor.Tools(),
		Temperature: &temp,
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: userPrompt(prompt, tableNames)},
		},
	}

	result := &Result{}
	provName := e.provider.Name()

	for iteration := 0; iteration < e.cfg.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		start := time.Now()
		resp, err := e.provider.Complete(ctx, req)
		duration := time.Since(start)

		if err != nil {
			observability.ProviderRequestsTotal.WithLabelValues(provName, e.cfg.Model, "error").Inc()
			observability.ProviderLatency.WithLabelValues(provName, e.cfg.Model).Observe(duration.Seconds())
			return nil, err
		}

		observability.ProviderRequestsTotal.WithLabelValues(provName, e.cfg.Model, "success").Inc()
		observability.ProviderLatency.WithLabelValues(provName, e.cfg.Model).Observe(duration.Seconds())
		observability.ProviderTokensTotal.WithLabelValues(provName, e.cfg.Model, "input").Add(float64(resp.Usage.InputTokens))
		observability.ProviderTokensTotal.WithLabelValues(provName, e.cfg.Model, "output").Add(float64(resp.Usage.OutputTokens))

		// No tool calls means the model has its final answer.
		if len(resp.ToolCalls) == 0 {
			result.Output = resp.Text
			observability.AgentIterations.Observe(float64(iteration + 1))
			return result, nil
		}

		// Keep any interim text around; it becomes the fallback answer
		// when the budget runs out mid-analysis.
		if resp.Text != "" {
			result.Output = resp.Text
		}

		req.Messages = append(req.Messages, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			observation := e.executeCall(ctx, executor, call)

			result.Steps = append(result.Steps, api.Step{
				Action: api.Action{
					Tool:      call.Name,
					Arguments: call.Arguments,
					Log:       resp.Text,
				},
				Observation: observation,
			})

			req.Messages = append(req.Messages, provider.Message{
				Role:       provider.RoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	observability.AgentIterations.Observe(float64(e.cfg.MaxIterations))
	slog.Warn("agent iteration budget exhausted",
		"max_iterations", e.cfg.MaxIterations, "steps", len(result.Steps))

	if result.Output == "" {
		result.Output = "Agent stopped after reaching the iteration limit."
	}
	return result, nil
}

// executeCall runs one tool call and returns the observation fed back to
// the model. Unknown tools and malformed arguments become corrective
// observations rather than request failures, so the model can recover.
func (e *Engine) executeCall(ctx context.Context, executor tools.Executor, call tools.ToolCall) string {
	if !executor.CanExecute(call.Name) {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.",
			call.Name, toolNames(executor.Tools()))
	}

	res, err := executor.Execute(ctx, call)
	if err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
		return fmt.Sprintf("Error executing %s: %v. Adjust the call and try again.", call.Name, err)
	}

	status := "success"
	if res.IsError {
		status = "tool_error"
	}
	observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()

	return res.Output
}

func toolNames(defs []tools.Definition) string {
	names := ""
	for i, d := range defs {
		if i > 0 {
			names += ", "
		}
		names += d.Name
	}
	return names
}
