// Package tools defines the tool-calling contract between the agent
// engine and tool implementations. The interpreter subpackage provides
// the sandbox-backed tools the data analysis agent exposes to the model.
package tools
