package upstream

import (
	"encoding/json"
	"time"
)

// Call is one outbound request. It is built per inbound request and discarded
// after the response.
type Call struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Authorization is forwarded unchanged as the Authorization header.
	Authorization string
	// RequireCredential refuses the call before any I/O when Authorization
	// is empty.
	RequireCredential bool
	// Timeout overrides the client default when positive.
	Timeout time.Duration
}

// Failure describes a call that did not yield a usable JSON payload.
type Failure struct {
	// StatusCode is set only when the upstream answered with an HTTP error.
	StatusCode int
	// Body is the upstream error body as JSON; non-JSON bodies are carried
	// as a JSON string.
	Body    json.RawMessage
	Message string
	Timeout bool
	// Err classifies the failure as an errors.StandardError.
	Err error
}

// Outcome is exactly one of a payload or a failure.
type Outcome struct {
	Payload json.RawMessage
	Failure *Failure
}

func (o Outcome) OK() bool {
	return o.Failure == nil
}

func success(payload []byte) Outcome {
	return Outcome{Payload: json.RawMessage(payload)}
}

func failed(f *Failure) Outcome {
	return Outcome{Failure: f}
}
