// Package sandbox manages code-interpreter sessions on the sandbox
// service. The Client speaks the interpreter REST API; the Manager
// layers session reuse, dataset staging, and lifecycle on top of it.
package sandbox
