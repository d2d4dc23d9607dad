package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/h2ogate/h2ogate/pkg/backend"
	"github.com/h2ogate/h2ogate/pkg/gateway/types"
	"github.com/h2ogate/h2ogate/pkg/usage"
)

type fakePool struct {
	acquireErr error
	acquired   int
	recycled   []string
}

func (f *fakePool) Acquire(ctx context.Context) (string, error) {
	if f.acquireErr != nil {
		return "", f.acquireErr
	}
	f.acquired++
	return fmt.Sprintf("sess-%d", f.acquired), nil
}

func (f *fakePool) Recycle(sessionID string) {
	f.recycled = append(f.recycled, sessionID)
}

type fakeRunner struct {
	turns     []backend.Turn
	fragments []backend.Fragment
	answer    string
	err       error
}

func (f *fakeRunner) StreamTurn(ctx context.Context, turn backend.Turn) (<-chan backend.Fragment, error) {
	f.turns = append(f.turns, turn)
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan backend.Fragment, len(f.fragments))
	for _, fr := range f.fragments {
		ch <- fr
	}
	close(ch)
	return ch, nil
}

func (f *fakeRunner) CompleteTurn(ctx context.Context, turn backend.Turn) (string, error) {
	f.turns = append(f.turns, turn)
	return f.answer, f.err
}

type fakeRecorder struct {
	records []*usage.TurnRecord
}

func (f *fakeRecorder) Record(ctx context.Context, record *usage.TurnRecord) error {
	f.records = append(f.records, record)
	return nil
}

func postChat(t *testing.T, handler *ChatHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// parseSSE splits an event-stream body into its data payloads.
func parseSSE(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			events = append(events, data)
		}
	}
	return events
}

func TestChatHandler_Completion(t *testing.T) {
	pool := &fakePool{}
	runner := &fakeRunner{answer: "Hi there"}
	h := NewChatHandler(pool, runner, nil, nil)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"Hello"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Errorf("completion id = %q", resp.ID)
	}
	if resp.Object != "chat.completion" || resp.Model != "auto" {
		t.Errorf("envelope fields wrong: %+v", resp)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "Hi there" {
		t.Errorf("choices = %+v", resp.Choices)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q", resp.Choices[0].FinishReason)
	}
	if resp.Usage.PromptTokens != len("Hello")/4 || resp.Usage.CompletionTokens != len("Hi there")/4 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if len(runner.turns) != 1 || runner.turns[0].SessionID != "sess-1" {
		t.Errorf("turn not run on the acquired session: %+v", runner.turns)
	}
	if len(pool.recycled) != 1 || pool.recycled[0] != "sess-1" {
		t.Errorf("session not recycled: %v", pool.recycled)
	}
}

func TestChatHandler_ConversationFlattening(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantMsg    string
		wantSystem string
	}{
		{
			name:    "single user message sent bare",
			body:    `{"model":"auto","messages":[{"role":"user","content":"Hello"}]}`,
			wantMsg: "Hello",
		},
		{
			name:       "system prompt extracted",
			body:       `{"model":"auto","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"Hello"}]}`,
			wantMsg:    "Hello",
			wantSystem: "be brief",
		},
		{
			name:    "multi-turn history prefixed and joined",
			body:    `{"model":"auto","messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"},{"role":"user","content":"c"}]}`,
			wantMsg: "User: a\nAssistant: b\nUser: c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{answer: "ok"}
			h := NewChatHandler(&fakePool{}, runner, nil, nil)

			rec := postChat(t, h, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			turn := runner.turns[0]
			if turn.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", turn.Message, tt.wantMsg)
			}
			if turn.SystemPrompt != tt.wantSystem {
				t.Errorf("system prompt = %q, want %q", turn.SystemPrompt, tt.wantSystem)
			}
		})
	}
}

func TestChatHandler_TemperaturePassthrough(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	h := NewChatHandler(&fakePool{}, runner, nil, nil)

	rec := postChat(t, h, `{"model":"auto","temperature":0.5,"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if runner.turns[0].Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", runner.turns[0].Temperature)
	}
}

func TestChatHandler_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing model", `{"messages":[{"role":"user","content":"hi"}]}`},
		{"empty messages", `{"model":"auto","messages":[]}`},
		{"bad role", `{"model":"auto","messages":[{"role":"robot","content":"hi"}]}`},
		{"temperature out of range", `{"model":"auto","temperature":3.5,"messages":[{"role":"user","content":"hi"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(&fakePool{}, &fakeRunner{}, nil, nil)
			rec := postChat(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var errResp types.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("error body is not valid JSON: %v", err)
			}
			if errResp.Error.Type != types.ErrorTypeInvalidRequest {
				t.Errorf("error type = %q", errResp.Error.Type)
			}
		})
	}
}

func TestChatHandler_PoolFailure(t *testing.T) {
	pool := &fakePool{acquireErr: errors.New("backend down")}
	h := NewChatHandler(pool, &fakeRunner{}, nil, nil)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestChatHandler_TurnFailure(t *testing.T) {
	pool := &fakePool{}
	runner := &fakeRunner{err: errors.New("stream refused")}
	h := NewChatHandler(pool, runner, nil, nil)

	rec := postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var errResp types.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error.Type != types.ErrorTypeBadGateway {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
	if len(pool.recycled) != 1 {
		t.Errorf("session must be recycled after a failed turn, recycled = %v", pool.recycled)
	}
}

func TestChatHandler_Streaming(t *testing.T) {
	pool := &fakePool{}
	runner := &fakeRunner{fragments: []backend.Fragment{
		{Content: "Hel"},
		{Content: "lo"},
	}}
	h := NewChatHandler(pool, runner, nil, nil)

	rec := postChat(t, h, `{"model":"auto","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5 (role, 2 content, stop, DONE): %q", len(events), events)
	}
	if events[len(events)-1] != "[DONE]" {
		t.Errorf("stream must end with [DONE], got %q", events[len(events)-1])
	}

	var first types.ChatCompletionStreamChunk
	json.Unmarshal([]byte(events[0]), &first)
	if first.Choices[0].Delta.Role != "assistant" {
		t.Errorf("first chunk must announce the role: %+v", first)
	}
	if first.Object != "chat.completion.chunk" {
		t.Errorf("chunk object = %q", first.Object)
	}

	var contents []string
	for _, ev := range events[1:3] {
		var chunk types.ChatCompletionStreamChunk
		json.Unmarshal([]byte(ev), &chunk)
		contents = append(contents, chunk.Choices[0].Delta.Content)
	}
	if contents[0] != "Hel" || contents[1] != "lo" {
		t.Errorf("content chunks = %q", contents)
	}

	var last types.ChatCompletionStreamChunk
	json.Unmarshal([]byte(events[3]), &last)
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "stop" {
		t.Errorf("final chunk finish_reason = %v", last.Choices[0].FinishReason)
	}

	if len(pool.recycled) != 1 {
		t.Errorf("session not recycled after stream: %v", pool.recycled)
	}
}

func TestChatHandler_StreamingErrorDeliveredInline(t *testing.T) {
	runner := &fakeRunner{fragments: []backend.Fragment{
		{Content: "partial"},
		{Err: errors.New("quota exceeded")},
	}}
	h := NewChatHandler(&fakePool{}, runner, nil, nil)

	rec := postChat(t, h, `{"model":"auto","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	// The status is committed before the failure; the error travels as
	// stream content.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "[Error: quota exceeded]") {
		t.Errorf("error not delivered inline: %s", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Error("stream must still terminate with [DONE]")
	}
}

func TestChatHandler_UsageRecorded(t *testing.T) {
	recorder := &fakeRecorder{}
	runner := &fakeRunner{answer: "four char"}
	h := NewChatHandler(&fakePool{}, runner, recorder, nil)

	rec := postChat(t, h, `{"model":"gpt-4o","messages":[{"role":"user","content":"Hello, world!"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("got %d usage records, want 1", len(recorder.records))
	}
	record := recorder.records[0]
	if record.Model != "gpt-4o" || record.Mode != "complete" || record.Outcome != "success" {
		t.Errorf("record = %+v", record)
	}
	if record.SessionID != "sess-1" {
		t.Errorf("session id = %q", record.SessionID)
	}
	if record.PromptTokens != len("Hello, world!")/4 {
		t.Errorf("prompt tokens = %d", record.PromptTokens)
	}
}

func TestChatHandler_UsageRecordsFailures(t *testing.T) {
	recorder := &fakeRecorder{}
	runner := &fakeRunner{err: errors.New("backend exploded")}
	h := NewChatHandler(&fakePool{}, runner, recorder, nil)

	postChat(t, h, `{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)

	if len(recorder.records) != 1 {
		t.Fatalf("got %d usage records, want 1", len(recorder.records))
	}
	record := recorder.records[0]
	if record.Outcome != "error" || record.Error == "" {
		t.Errorf("failure not recorded: %+v", record)
	}
}
