// Command mock-backend runs a deterministic Chat Completions server
// for local development. It plays one round of the analysis loop:
// the first call on a conversation requests an execute_python tool
// call, and the follow-up call (carrying the tool observation) returns
// a final answer built from that observation.
//
// Configuration:
//
//	MOCK_BACKEND_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_BACKEND_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []any         `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`,
			http.StatusBadRequest)
		return
	}

	if len(req.Messages) == 0 {
		http.Error(w, `{"error":{"message":"messages required","type":"invalid_request_error"}}`,
			http.StatusBadRequest)
		return
	}

	var msg chatMsg
	finish := "stop"

	last := req.Messages[len(req.Messages)-1]
	switch {
	case len(req.Tools) > 0 && last.Role != "tool":
		// First turn: inspect the data before answering.
		args, _ := json.Marshal(map[string]string{
			"code":        "import pandas as pd\ndf = pd.read_csv('data.csv')\nprint(df.describe())",
			"description": "Inspect the dataset",
		})
		msg = chatMsg{
			Role: "assistant",
			ToolCalls: []toolCall{{
				ID:   "call_mock_1",
				Type: "function",
				Function: funcCall{
					Name:      "execute_python",
					Arguments: string(args),
				},
			}},
		}
		finish = "tool_calls"

	default:
		// Follow-up turn: fold the observation into a final answer.
		text := "Based on the executed analysis, the dataset was inspected successfully."
		if last.Role == "tool" && last.Content != "" {
			text = fmt.Sprintf("Based on the executed analysis: %.200s", last.Content)
		}
		msg = chatMsg{Role: "assistant", Content: &text}
	}

	writeJSON(w, chatResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []chatChoice{{
			Message:      msg,
			FinishReason: finish,
		}},
		Usage: chatUsage{PromptTokens: 100, CompletionTokens: 25, TotalTokens: 125},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
