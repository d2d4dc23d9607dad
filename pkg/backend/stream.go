package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/h2ogate/h2ogate/pkg/credential"
)

// Turn is one chat exchange: the user message plus sampling options, bound to
// an existing backend chat session.
type Turn struct {
	SessionID    string
	Message      string
	SystemPrompt string

	// Model selects the backend LLM. Empty means "auto".
	Model string

	// Temperature is clamped to [0, 1] on the wire. Zero leaves the
	// backend default in place.
	Temperature float64
}

// Fragment is one streamed piece of a turn's answer. Exactly one of Content
// and Err is set; an error fragment is always the last one delivered.
type Fragment struct {
	Content string
	Err     error
}

// StreamTurn opens a dedicated WebSocket for the turn, sends the chat query,
// and returns a channel of answer fragments. The channel is closed when the
// turn ends, whether by a terminal frame, a receive timeout, or the backend
// closing the connection; the latter two are normal stream endings, not
// errors. There is no cancellation mid-turn: callers drain the channel.
func (c *Client) StreamTurn(ctx context.Context, turn Turn) (<-chan Fragment, error) {
	c.creds.EnsureReady(ctx)

	conn, err := c.dialTurn(ctx, turn.SessionID)
	if err != nil {
		return nil, &CallError{Endpoint: wsPath, Message: err.Error()}
	}

	query, err := c.buildChatQuery(turn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, query); err != nil {
		conn.Close()
		return nil, &CallError{Endpoint: wsPath, Message: fmt.Sprintf("failed to send chat query: %v", err)}
	}

	out := make(chan Fragment)
	go c.receiveTurn(conn, out)
	return out, nil
}

// CompleteTurn runs a turn to completion and returns the concatenated answer.
func (c *Client) CompleteTurn(ctx context.Context, turn Turn) (string, error) {
	fragments, err := c.StreamTurn(ctx, turn)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for f := range fragments {
		if f.Err != nil {
			for range fragments {
			}
			return "", f.Err
		}
		b.WriteString(f.Content)
	}
	return b.String(), nil
}

func (c *Client) dialTurn(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	cred := c.creds.Current()

	header := http.Header{}
	header.Set("Cookie", credential.SessionCookieName+"="+cred.Session)
	header.Set("Origin", c.baseURL)
	header.Set("User-Agent", credential.BrowserUserAgent)

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	wsURL := c.wsBaseURL + "?currentSessionID=" + url.QueryEscape(sessionID)

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// buildChatQuery encodes the cq frame. llm_args and rag_config are
// double-encoded JSON strings; that is the wire format the backend expects.
func (c *Client) buildChatQuery(turn Turn) ([]byte, error) {
	llmArgs := map[string]any{
		"enable_vision":         "auto",
		"visible_vision_models": []string{"auto"},
		"use_agent":             false,
		"cost_controls": map[string]any{
			"max_cost":            0.05,
			"willingness_to_pay":  1,
			"willingness_to_wait": 60,
		},
		"remove_non_private": false,
	}
	if turn.Temperature > 0 {
		llmArgs["temperature"] = min(turn.Temperature, 1.0)
	}

	ragConfig := map[string]any{
		"rag_type":                         "auto",
		"hyde_no_rag_llm_prompt_extension": nil,
		"num_neighbor_chunks_to_include":   1,
		"meta_data_to_include": map[string]bool{
			"name":     true,
			"page":     true,
			"text":     true,
			"captions": true,
		},
	}

	llmArgsJSON, err := json.Marshal(llmArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode llm args: %w", err)
	}
	ragConfigJSON, err := json.Marshal(ragConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rag config: %w", err)
	}

	model := turn.Model
	if model == "" {
		model = "auto"
	}

	query := map[string]any{
		"t":                      tagQuery,
		"mode":                   "s",
		"session_id":             turn.SessionID,
		"correlation_id":         uuid.NewString(),
		"body":                   turn.Message,
		"llm":                    model,
		"llm_args":               string(llmArgsJSON),
		"self_reflection_config": "null",
		"rag_config":             string(ragConfigJSON),
		"include_chat_history":   "auto",
		"tags":                   []string{},
	}
	if c.promptTemplateID != "" {
		query["prompt_template_id"] = c.promptTemplateID
	} else {
		query["prompt_template_id"] = nil
	}
	if turn.SystemPrompt != "" {
		query["system_prompt"] = turn.SystemPrompt
	}

	return json.Marshal(query)
}

func (c *Client) receiveTurn(conn *websocket.Conn, out chan<- Fragment) {
	defer close(out)
	defer conn.Close()

	emitted := false
	for {
		conn.SetReadDeadline(time.Now().Add(c.receiveTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			// A read deadline or a peer close ends the turn normally;
			// the backend does not always send an explicit done frame.
			c.logger.Debug("chat stream ended", "reason", err)
			return
		}

		f := decodeFrame(data)
		switch f.kind {
		case framePartial:
			if f.body != "" {
				out <- Fragment{Content: f.body}
				emitted = true
			}
		case frameAccumulated:
			// Fallback for turns where the backend sent no incremental
			// frames. Once anything has been emitted the accumulated
			// body would duplicate it.
			if !emitted && f.body != "" {
				out <- Fragment{Content: f.body}
				emitted = true
			}
		case frameFinal, frameDone:
			return
		case frameError:
			out <- Fragment{Err: &StreamError{Message: f.body}}
			return
		}
	}
}
