// Package openaicompat implements provider.Provider for OpenAI-compatible
// Chat Completions backends (OpenAI, vLLM, LiteLLM and the like).
package openaicompat
