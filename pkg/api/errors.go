package api

import "fmt"

// ErrorType represents the category of a service error.
type ErrorType string

const (
	// ErrorTypeValidation marks a missing or malformed request field.
	ErrorTypeValidation ErrorType = "validation_error"

	// ErrorTypeConfiguration marks a missing required environment or
	// config setting, detected at startup or on first use.
	ErrorTypeConfiguration ErrorType = "configuration_error"

	// ErrorTypeUpstream marks a failed call to the object store, the
	// LLM backend, the sandbox service, or the agent runtime.
	ErrorTypeUpstream ErrorType = "upstream_error"

	// ErrorTypeUnsupportedFormat marks a dataset reference whose file
	// extension is not a recognized tabular container format.
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
)

// APIError represents a structured service error with type, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError creates an APIError for invalid request parameters.
func NewValidationError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Param:   param,
		Message: message,
	}
}

// NewConfigurationError creates an APIError for missing required configuration.
func NewConfigurationError(setting, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConfiguration,
		Param:   setting,
		Message: message,
	}
}

// NewUpstreamError creates an APIError for failed upstream calls.
func NewUpstreamError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstream,
		Message: message,
	}
}

// NewUnsupportedFormatError creates an APIError for unrecognized dataset formats.
func NewUnsupportedFormatError(extension string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnsupportedFormat,
		Param:   extension,
		Message: fmt.Sprintf("unsupported file format: %s", extension),
	}
}
