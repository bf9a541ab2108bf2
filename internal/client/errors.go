package client

import "fmt"

// Fixed user-facing messages.
const (
	msgNoFile       = "Please select a file."
	msgProcessing   = "Processing..."
	msgSuccess      = "File processed successfully."
	msgUploadFailed = "Upload failed"
)

// ValidationError means the selection was rejected before any request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TransportError means the request never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Detail is the server's message, or
// "Upload failed" when the body carried none. Err holds a
// MalformedResponseError when the body could not be decoded.
type ServerError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *ServerError) Error() string { return e.Detail }

func (e *ServerError) Unwrap() error { return e.Err }

// MalformedResponseError means a response body was not in the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
