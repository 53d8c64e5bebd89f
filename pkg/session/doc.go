// Package session defines persistence for sandbox session records.
//
// A record maps a caller-supplied runtime session key to the sandbox
// session that holds its staged datasets, so follow-up requests with the
// same key can reuse a warm interpreter instead of starting a new one.
// Implementations live in the memory and postgres subpackages.
package session
