// Package engine runs the data-analysis agent: it stages datasets into
// a sandbox session, drives the tool-calling loop against the configured
// LLM provider, and assembles the final result with its step trace.
package engine
