// Package api defines the wire types for the tabletalk data-analysis
// service: invocation requests, analysis results, trace envelopes, and
// the structured error taxonomy shared by every layer.
//
// The package has zero external dependencies (Go standard library only)
// and performs no I/O. Field names match the service's public JSON
// contract and must not change without a compatibility review.
package api
