// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/h2ogate/h2ogate/pkg/backend"
	"github.com/h2ogate/h2ogate/pkg/gateway/middleware"
	"github.com/h2ogate/h2ogate/pkg/gateway/types"
	"github.com/h2ogate/h2ogate/pkg/telemetry/metrics"
	"github.com/h2ogate/h2ogate/pkg/usage"
)

// SessionPool supplies chat sessions for turns.
type SessionPool interface {
	Acquire(ctx context.Context) (string, error)
	Recycle(sessionID string)
}

// TurnRunner runs chat turns against the backend.
type TurnRunner interface {
	StreamTurn(ctx context.Context, turn backend.Turn) (<-chan backend.Fragment, error)
	CompleteTurn(ctx context.Context, turn backend.Turn) (string, error)
}

// UsageRecorder persists completed turn records.
type UsageRecorder interface {
	Record(ctx context.Context, record *usage.TurnRecord) error
}

// ChatHandler serves POST /v1/chat/completions in both streaming and
// non-streaming modes.
type ChatHandler struct {
	pool    SessionPool
	runner  TurnRunner
	usage   UsageRecorder
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewChatHandler creates the chat completions handler. The usage recorder
// and metrics collector may be nil.
func NewChatHandler(pool SessionPool, runner TurnRunner, recorder UsageRecorder, collector *metrics.Collector) *ChatHandler {
	return &ChatHandler{
		pool:    pool,
		runner:  runner,
		usage:   recorder,
		metrics: collector,
		logger:  slog.Default().With("component", "gateway.chat"),
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.NewInvalidRequestError("invalid request body: "+err.Error(), "", ""))
		return
	}
	if errResp := req.Validate(); errResp != nil {
		writeError(w, http.StatusBadRequest, errResp)
		return
	}

	systemPrompt, message := flattenConversation(req.Messages)

	sessionID, err := h.pool.Acquire(r.Context())
	if err != nil {
		h.logger.Error("failed to acquire chat session", "error", err)
		writeError(w, http.StatusBadGateway, types.NewBadGatewayError("failed to acquire a backend session"))
		return
	}
	defer h.pool.Recycle(sessionID)

	turn := backend.Turn{
		SessionID:    sessionID,
		Message:      message,
		SystemPrompt: systemPrompt,
		Model:        req.Model,
	}
	if req.Temperature != nil {
		turn.Temperature = *req.Temperature
	}

	if req.Stream {
		h.streamCompletion(w, r, req, turn)
		return
	}
	h.completion(w, r, req, turn)
}

func (h *ChatHandler) completion(w http.ResponseWriter, r *http.Request, req types.ChatCompletionRequest, turn backend.Turn) {
	start := time.Now()

	answer, err := h.runner.CompleteTurn(r.Context(), turn)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", turn.SessionID, "error", err)
		h.recordTurn(r, req, turn, "complete", "error", "", err, time.Since(start))
		writeError(w, http.StatusBadGateway, types.NewBadGatewayError(err.Error()))
		return
	}

	h.recordTurn(r, req, turn, "complete", "success", answer, nil, time.Since(start))

	resp := types.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.Message{Role: "assistant", Content: answer},
			FinishReason: "stop",
		}},
		Usage: estimateUsage(turn.Message, answer),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) streamCompletion(w http.ResponseWriter, r *http.Request, req types.ChatCompletionRequest, turn backend.Turn) {
	start := time.Now()

	fragments, err := h.runner.StreamTurn(r.Context(), turn)
	if err != nil {
		h.logger.Error("failed to start chat stream", "session_id", turn.SessionID, "error", err)
		h.recordTurn(r, req, turn, "stream", "error", "", err, time.Since(start))
		writeError(w, http.StatusBadGateway, types.NewBadGatewayError(err.Error()))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, types.NewServerError("streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	completionID := newCompletionID()
	created := time.Now().Unix()

	// First chunk announces the assistant role.
	writeChunk(w, streamChunk(completionID, created, req.Model, types.Delta{Role: "assistant"}, nil))
	flusher.Flush()

	var answer strings.Builder
	var streamErr error
	for f := range fragments {
		if f.Err != nil {
			// Mid-stream failures are delivered inline: the HTTP status
			// is already committed, so the error travels as content.
			streamErr = f.Err
			writeChunk(w, streamChunk(completionID, created, req.Model,
				types.Delta{Content: fmt.Sprintf("[Error: %v]", f.Err)}, nil))
			flusher.Flush()
			break
		}
		answer.WriteString(f.Content)
		writeChunk(w, streamChunk(completionID, created, req.Model, types.Delta{Content: f.Content}, nil))
		flusher.Flush()
	}

	stop := "stop"
	writeChunk(w, streamChunk(completionID, created, req.Model, types.Delta{}, &stop))
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	outcome := "success"
	if streamErr != nil {
		outcome = "error"
	}
	h.recordTurn(r, req, turn, "stream", outcome, answer.String(), streamErr, time.Since(start))
}

// recordTurn writes the usage record and metrics for one finished turn.
func (h *ChatHandler) recordTurn(r *http.Request, req types.ChatCompletionRequest, turn backend.Turn, mode, outcome, answer string, turnErr error, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordTurn(mode, outcome, duration)
	}
	if h.usage == nil {
		return
	}

	u := estimateUsage(turn.Message, answer)
	record := &usage.TurnRecord{
		ID:               uuid.NewString(),
		RequestID:        middleware.GetRequestID(r.Context()),
		SessionID:        turn.SessionID,
		Model:            req.Model,
		Mode:             mode,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Duration:         duration,
		Outcome:          outcome,
		CreatedAt:        time.Now().UTC(),
	}
	if turnErr != nil {
		record.Error = turnErr.Error()
	}

	if err := h.usage.Record(r.Context(), record); err != nil {
		h.logger.Warn("failed to record turn usage", "error", err)
	}
}

// flattenConversation folds an OpenAI message list into the single prompt
// string the backend accepts. The system prompt travels separately; user and
// assistant turns are prefixed and joined. A single-turn conversation sends
// the bare message without prefixes.
func flattenConversation(messages []types.Message) (systemPrompt, message string) {
	var parts []string
	lastContent := ""
	for _, m := range messages {
		switch m.Role {
		case "system":
			systemPrompt = m.Content
		case "user":
			parts = append(parts, "User: "+m.Content)
			lastContent = m.Content
		case "assistant":
			parts = append(parts, "Assistant: "+m.Content)
			lastContent = m.Content
		}
	}

	switch len(parts) {
	case 0:
		if len(messages) > 0 {
			return systemPrompt, messages[len(messages)-1].Content
		}
		return systemPrompt, ""
	case 1:
		return systemPrompt, lastContent
	default:
		return systemPrompt, strings.Join(parts, "\n")
	}
}

func streamChunk(id string, created int64, model string, delta types.Delta, finishReason *string) types.ChatCompletionStreamChunk {
	return types.ChatCompletionStreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []types.StreamChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
}

func writeChunk(w http.ResponseWriter, chunk types.ChatCompletionStreamChunk) {
	data, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// estimateUsage approximates token counts as characters/4. The backend
// exposes no token accounting for guest traffic.
func estimateUsage(prompt, answer string) types.Usage {
	return types.Usage{
		PromptTokens:     len(prompt) / 4,
		CompletionTokens: len(answer) / 4,
		TotalTokens:      (len(prompt) + len(answer)) / 4,
	}
}

func newCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
