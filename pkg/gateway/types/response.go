package types

// ChatCompletionResponse is the non-streaming response for
// /v1/chat/completions.
type ChatCompletionResponse struct {
	// ID is the unique completion ID ("chatcmpl-...").
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of creation.
	Created int64 `json:"created"`

	// Model echoes the requested model.
	Model string `json:"model"`

	// Choices contains the completion; the gateway always produces one.
	Choices []Choice `json:"choices"`

	// Usage reports token usage. Counts are estimated: the backend does
	// not expose token accounting for guest traffic.
	Usage Usage `json:"usage"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionStreamChunk is one SSE chunk of a streaming response.
type ChatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // always "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one choice within a stream chunk.
type StreamChoice struct {
	Index int   `json:"index"`
	Delta Delta `json:"delta"`

	// FinishReason is null until the final chunk, then "stop".
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental content of a stream chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Model is one entry of the /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"` // always "model"
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelsResponse is the /v1/models listing.
type ModelsResponse struct {
	Object string  `json:"object"` // always "list"
	Data   []Model `json:"data"`
}
