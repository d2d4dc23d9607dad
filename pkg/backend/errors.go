package backend

import "fmt"

// CallError describes a failed RPC call against the backend. It carries the
// endpoint and HTTP status so the gateway layer can map backend failures to
// meaningful client responses.
type CallError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend call to %s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend call to %s failed: %s", e.Endpoint, e.Message)
}

// StreamError is an error frame received mid-stream on the chat WebSocket.
// The text is backend-authored and safe to surface to clients.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("chat stream error: %s", e.Message)
}
