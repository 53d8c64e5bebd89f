package api

// InvocationRequest is the body of POST /invocations and POST /chat.
// S3URLs maps a logical dataset name to an s3:// object reference.
type InvocationRequest struct {
	S3URLs           map[string]string `json:"s3_urls"`
	Prompt           string            `json:"prompt"`
	RuntimeSessionID string            `json:"runtime_session_id,omitempty"`

	// Trace override fields. Callers may supply these in the body in
	// addition to (or instead of) the corresponding headers.
	TraceID     string `json:"traceId,omitempty"`
	Baggage     string `json:"baggage,omitempty"`
	Tracestate  string `json:"tracestate,omitempty"`
	Traceparent string `json:"traceparent,omitempty"`
}

// Step is one (action, observation) pair from the agent loop.
type Step struct {
	Action      Action `json:"action"`
	Observation string `json:"observation"`
}

// Action describes a single tool invocation requested by the model.
type Action struct {
	Tool      string `json:"tool"`
	Arguments string `json:"tool_input"`
	Log       string `json:"log,omitempty"`
}

// Trace echoes the trace context a request carried, for diagnosability.
type Trace struct {
	Headers          map[string]string `json:"headers"`
	Payload          map[string]string `json:"payload"`
	RuntimeSessionID string            `json:"runtime_session_id,omitempty"`
}

// InvocationResponse is the body of a successful POST /invocations.
type InvocationResponse struct {
	Output            string   `json:"output"`
	IntermediateSteps []Step   `json:"intermediate_steps"`
	DataframesLoaded  []string `json:"dataframes_loaded"`
	Trace             Trace    `json:"trace"`
}

// ChatResponse is the body of a successful POST /chat. Output and
// IntermediateSteps are loosely typed because they are relayed from the
// remote agent runtime, whose payload shape is not under our control.
type ChatResponse struct {
	Output            any      `json:"output"`
	IntermediateSteps any      `json:"intermediate_steps"`
	DataframesLoaded  []string `json:"dataframes_loaded"`
	Charts            []string `json:"charts"`
	Trace             Trace    `json:"trace"`
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Status           string `json:"status"`
	TimeOfLastUpdate int64  `json:"time_of_last_update"`
}

// UploadResponse is the body of a successful POST /upload.
type UploadResponse struct {
	S3URLs map[string]string `json:"s3_urls"`
}

// CleanupResponse is the body of POST /cleanup-session.
type CleanupResponse struct {
	Message string `json:"message"`
}

// ErrorBody is the JSON body for 4xx/5xx responses. Traceback carries a
// Go stack trace on unhandled 500s; this is a debug-oriented surface.
type ErrorBody struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
}
