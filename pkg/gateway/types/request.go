// Package types defines the OpenAI-compatible request and response types
// served by the gateway. Field names follow OpenAI's snake_case JSON
// convention so standard OpenAI SDKs work unmodified.
package types

// ChatCompletionRequest is the request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	// Model is the model ID to use. "auto" lets the backend pick.
	Model string `json:"model"`

	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// Temperature controls sampling randomness (0.0 to 1.0 on the backend).
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens is accepted for SDK compatibility; the backend does not
	// support an output cap.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP is accepted for SDK compatibility.
	TopP *float64 `json:"top_p,omitempty"`

	// N is accepted for SDK compatibility; only one choice is produced.
	N *int `json:"n,omitempty"`

	// Stream enables server-sent-event streaming.
	Stream bool `json:"stream,omitempty"`

	// PresencePenalty is accepted for SDK compatibility.
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty is accepted for SDK compatibility.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// User is an opaque end-user identifier.
	User string `json:"user,omitempty"`
}

// Message is one message in the conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Validate checks the request for structural errors and returns an
// OpenAI-style error response describing the first problem found.
func (r *ChatCompletionRequest) Validate() *ErrorResponse {
	if r.Model == "" {
		return NewInvalidRequestError("model is required", "model", CodeMissingField)
	}
	if len(r.Messages) == 0 {
		return NewInvalidRequestError("messages must not be empty", "messages", CodeMissingField)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return NewInvalidRequestError("message role must be system, user, or assistant", "messages", CodeInvalidValue)
		}
		if m.Content == "" && i == len(r.Messages)-1 {
			return NewInvalidRequestError("last message has no content", "messages", CodeInvalidValue)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return NewInvalidRequestError("temperature must be between 0 and 2", "temperature", CodeInvalidValue)
	}
	return nil
}
