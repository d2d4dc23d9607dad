// Package backend implements the H2OGPTE protocol client: cookie/CSRF
// authenticated RPC calls for chat session management and the WebSocket
// bridge that carries chat turns.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/h2ogate/h2ogate/pkg/credential"
	"github.com/h2ogate/h2ogate/pkg/telemetry/metrics"
)

const (
	rpcDBPath  = "/rpc/db"
	rpcJobPath = "/rpc/job"
	wsPath     = "/ws"

	// deleteSessionsJob is the backend job that removes chat sessions.
	// There is no plain RPC method for deletion; it only exists as a job.
	deleteSessionsJob = "q:crawl_quick.DeleteChatSessionsJob"
)

// Config contains configuration for a backend Client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://h2ogpte.genai.h2o.ai.
	BaseURL string

	// WorkspaceID is the workspace new chat sessions are created in.
	WorkspaceID string

	// PromptTemplateID optionally pins a backend prompt template on every
	// turn. Empty sends null, letting the backend pick.
	PromptTemplateID string

	// GuestMode enables 429 recovery by acquiring a brand-new guest
	// identity. Static operator credentials have no such escape hatch.
	GuestMode bool

	// RPCTimeout bounds one RPC request attempt.
	RPCTimeout time.Duration

	// StreamReceiveTimeout is the per-message read deadline on the chat
	// WebSocket. The backend sends no explicit end-of-stream in some
	// paths, so hitting this deadline ends the turn normally.
	StreamReceiveTimeout time.Duration
}

// Client talks to the H2OGPTE backend. RPC calls transparently recover from
// credential expiry (401) and, in guest mode, quota exhaustion (429) by
// refreshing through the credential manager and retrying once.
type Client struct {
	baseURL          string
	wsBaseURL        string
	workspaceID      string
	promptTemplateID string
	guestMode        bool
	receiveTimeout   time.Duration

	httpClient *http.Client
	creds      *credential.Manager
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewClient creates a backend client. The metrics collector may be nil.
func NewClient(cfg Config, creds *credential.Manager, collector *metrics.Collector) *Client {
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 60 * time.Second
	}
	if cfg.StreamReceiveTimeout <= 0 {
		cfg.StreamReceiveTimeout = 120 * time.Second
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	wsBaseURL := strings.Replace(baseURL, "https://", "wss://", 1)
	wsBaseURL = strings.Replace(wsBaseURL, "http://", "ws://", 1)

	return &Client{
		baseURL:          baseURL,
		wsBaseURL:        wsBaseURL + wsPath,
		workspaceID:      cfg.WorkspaceID,
		promptTemplateID: cfg.PromptTemplateID,
		guestMode:        cfg.GuestMode,
		receiveTimeout:   cfg.StreamReceiveTimeout,
		httpClient:       &http.Client{Timeout: cfg.RPCTimeout},
		creds:            creds,
		metrics:          collector,
		logger:           slog.Default().With("component", "backend.client"),
	}
}

// CreateChatSession creates a new chat session in the configured workspace
// and returns its id.
func (c *Client) CreateChatSession(ctx context.Context) (string, error) {
	raw, err := c.rpcDB(ctx, "create_chat_session", nil, c.workspaceID)
	if err != nil {
		return "", err
	}

	// The backend has returned both a bare id string and an object with an
	// id field, depending on version.
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != "" {
		return obj.ID, nil
	}
	return "", &CallError{Endpoint: rpcDBPath, Message: "create_chat_session returned no session id"}
}

// GetChatSession returns the raw session record for the given id.
func (c *Client) GetChatSession(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return c.rpcDB(ctx, "get_chat_session", sessionID)
}

// ListChatMessages returns the raw message records of a chat session.
func (c *Client) ListChatMessages(ctx context.Context, sessionID string, offset, limit int) ([]json.RawMessage, error) {
	raw, err := c.rpcDB(ctx, "list_chat_messages_full", sessionID, offset, limit)
	if err != nil {
		return nil, err
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, &CallError{Endpoint: rpcDBPath, Message: fmt.Sprintf("unexpected list_chat_messages_full result: %v", err)}
	}
	return messages, nil
}

// DeleteChatSession removes a chat session on the backend.
func (c *Client) DeleteChatSession(ctx context.Context, sessionID string) error {
	_, err := c.rpcJob(ctx, deleteSessionsJob, map[string]any{
		"name":             "Deleting Chat Sessions",
		"chat_session_ids": []string{sessionID},
	})
	return err
}

// rpcDB calls the /rpc/db endpoint. The wire format is a positional JSON
// array: [method, arg1, arg2, ...].
func (c *Client) rpcDB(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	payload, err := json.Marshal(append([]any{method}, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to encode rpc payload: %w", err)
	}
	return c.call(ctx, rpcDBPath, payload)
}

// rpcJob calls the /rpc/job endpoint. The wire format is [method, params].
func (c *Client) rpcJob(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := json.Marshal([]any{method, params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}
	return c.call(ctx, rpcJobPath, payload)
}

// call performs one resilient RPC: attempt, refresh-and-retry once on 401,
// and in guest mode refresh-fresh-and-retry once on 429. The retry budget is
// a single retry per trigger so a persistently broken backend fails fast
// instead of looping.
func (c *Client) call(ctx context.Context, endpoint string, payload []byte) (json.RawMessage, error) {
	c.creds.EnsureReady(ctx)

	start := time.Now()
	result, err := c.doCall(ctx, endpoint, payload)
	if c.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.metrics.RecordBackendCall(endpoint, outcome, time.Since(start))
	}
	return result, err
}

func (c *Client) doCall(ctx context.Context, endpoint string, payload []byte) (json.RawMessage, error) {
	status, body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, &CallError{Endpoint: endpoint, Message: err.Error()}
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("backend rejected credentials, refreshing", "endpoint", endpoint)
		if c.creds.Refresh(ctx, false) {
			status, body, err = c.post(ctx, endpoint, payload)
			if err != nil {
				return nil, &CallError{Endpoint: endpoint, Message: err.Error()}
			}
		}
	}

	if status == http.StatusTooManyRequests && c.guestMode {
		c.logger.Warn("guest quota exhausted, acquiring new identity", "endpoint", endpoint)
		if c.creds.Refresh(ctx, true) {
			status, body, err = c.post(ctx, endpoint, payload)
			if err != nil {
				return nil, &CallError{Endpoint: endpoint, Message: err.Error()}
			}
		}
	}

	if status < 200 || status > 299 {
		return nil, &CallError{Endpoint: endpoint, StatusCode: status, Message: truncate(string(body), 200)}
	}
	return json.RawMessage(body), nil
}

// post performs a single HTTP attempt. Headers are derived from the
// credential manager's current snapshot on every attempt, so a refresh
// between attempts is picked up automatically.
func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}

	cred := c.creds.Current()
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("User-Agent", credential.BrowserUserAgent)
	req.Header.Set("X-Csrf-Token", cred.CSRFToken)
	req.AddCookie(&http.Cookie{Name: credential.SessionCookieName, Value: cred.Session})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
