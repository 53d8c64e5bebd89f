// Package provider abstracts LLM inference backends behind a common
// tool-calling completion interface. Adapters live in subpackages, one
// per backend protocol.
package provider
