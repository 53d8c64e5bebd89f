package api

// ValidateInvocation checks an InvocationRequest for the required fields.
// It returns an *APIError describing the first validation failure, or nil
// if the request is valid.
func ValidateInvocation(req *InvocationRequest) *APIError {
	if len(req.S3URLs) == 0 {
		return NewValidationError("s3_urls",
			"no S3 URLs provided, expected 's3_urls' field with dict of name->S3 URL")
	}

	for name, url := range req.S3URLs {
		if name == "" {
			return NewValidationError("s3_urls", "dataset name must not be empty")
		}
		if url == "" {
			return NewValidationError("s3_urls", "S3 URL for "+name+" must not be empty")
		}
	}

	if req.Prompt == "" {
		return NewValidationError("prompt", "no prompt provided")
	}

	return nil
}
