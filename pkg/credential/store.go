package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// SessionCookieName is the backend's session identity cookie. The
	// backend call layer sends it on every RPC and WebSocket request.
	SessionCookieName = "h2ogpte.session"

	// bootstrapPath is the backend page whose response headers and embedded
	// configuration blob yield a fresh or renewed identity.
	bootstrapPath = "/chats"

	// BrowserUserAgent is sent on every backend request. The backend only
	// issues guest identities to requests that look like a browser.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Store persists one backend credential record to durable storage and
// performs the bootstrap-page network operations that renew or acquire
// identities. It holds no "current credential" state; that belongs to the
// Manager.
type Store struct {
	path      string
	baseURL   string
	guestMode bool
	timeout   time.Duration
	logger    *slog.Logger
}

// StoreConfig contains configuration for a Store.
type StoreConfig struct {
	// Path is the location of the persisted JSON credential record.
	Path string

	// BaseURL is the backend base URL the bootstrap page is fetched from.
	BaseURL string

	// GuestMode controls whether successful renewals are persisted. In
	// static mode the operator-supplied record on disk is never overwritten.
	GuestMode bool

	// Timeout bounds one bootstrap page fetch.
	Timeout time.Duration
}

// NewStore creates a credential store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Store{
		path:      cfg.Path,
		baseURL:   cfg.BaseURL,
		guestMode: cfg.GuestMode,
		timeout:   cfg.Timeout,
		logger:    slog.Default().With("component", "credential.store"),
	}
}

// Load reads the persisted credential record. It fails soft: a missing file,
// unreadable file, or malformed record all return absent, with the cause
// logged. LastUsedAt of the returned record is set to the read time.
func (s *Store) Load() (*Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read credential file", "path", s.path, "error", err)
		}
		return nil, false
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("failed to parse credential file", "path", s.path, "error", err)
		return nil, false
	}
	if !cred.Ready() {
		s.logger.Warn("credential file is incomplete, ignoring", "path", s.path)
		return nil, false
	}

	cred.LastUsedAt = time.Now()
	return &cred, true
}

// Save atomically persists the credential record. A save failure leaves any
// in-memory credential valid, so callers treat the error as non-fatal.
func (s *Store) Save(cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credential-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

// Renew revisits the bootstrap page using the current session cookie. The
// backend may rotate the session token via Set-Cookie (we fall back to the
// current token when it does not) and always embeds a fresh CSRF token and
// user identity in the page. On success the record is persisted in guest
// mode; in static mode only the returned copy changes, so operator-supplied
// durable configuration is never overwritten.
func (s *Store) Renew(ctx context.Context, current *Credential) (*Credential, bool) {
	if current == nil || current.Session == "" {
		s.logger.Warn("no existing credential to renew")
		return nil, false
	}

	session, conf, ok := s.fetchBootstrap(ctx, current.Session)
	if !ok {
		return nil, false
	}
	if session == "" {
		session = current.Session
	}

	userID := conf.UserID
	if userID == "" {
		userID = current.UserID
	}
	username := conf.Username
	if username == "" {
		username = current.Username
	}

	now := time.Now()
	cred := &Credential{
		Session:    session,
		CSRFToken:  conf.CSRFToken,
		UserID:     userID,
		Username:   username,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if s.guestMode {
		if err := s.Save(cred); err != nil {
			s.logger.Warn("failed to persist renewed credential", "error", err)
		}
	} else {
		// Keep the original acquisition time in static mode; only the
		// tokens rotated.
		cred.CreatedAt = current.CreatedAt
	}

	s.logger.Info("session renewed", "username", cred.Username)
	return cred, true
}

// AcquireFresh fetches the bootstrap page without any cookie, so the backend
// issues a brand-new guest identity. Always persists on success.
func (s *Store) AcquireFresh(ctx context.Context) (*Credential, bool) {
	session, conf, ok := s.fetchBootstrap(ctx, "")
	if !ok {
		return nil, false
	}
	if session == "" {
		s.logger.Warn("bootstrap page issued no session cookie")
		return nil, false
	}

	now := time.Now()
	cred := &Credential{
		Session:    session,
		CSRFToken:  conf.CSRFToken,
		UserID:     conf.UserID,
		Username:   conf.Username,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if err := s.Save(cred); err != nil {
		s.logger.Warn("failed to persist fresh credential", "error", err)
	}

	s.logger.Info("acquired fresh guest credential", "username", cred.Username)
	return cred, true
}

// fetchBootstrap performs one GET against the bootstrap page, following
// redirects. It returns the session token issued via Set-Cookie anywhere in
// the redirect chain (empty when none was issued) and the parsed data-conf
// blob. ok is false on any non-200 status, transport error, or unparseable
// configuration blob.
func (s *Store) fetchBootstrap(ctx context.Context, currentSession string) (string, bootstrapConfig, bool) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		s.logger.Warn("invalid backend base URL", "url", s.baseURL, "error", err)
		return "", bootstrapConfig{}, false
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		s.logger.Warn("failed to create cookie jar", "error", err)
		return "", bootstrapConfig{}, false
	}
	if currentSession != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: SessionCookieName, Value: currentSession}})
	}

	client := &http.Client{Jar: jar, Timeout: s.timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+bootstrapPath, nil)
	if err != nil {
		return "", bootstrapConfig{}, false
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Warn("bootstrap fetch failed", "error", err)
		return "", bootstrapConfig{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("bootstrap fetch returned non-200", "status", resp.StatusCode)
		return "", bootstrapConfig{}, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Warn("failed to read bootstrap page", "error", err)
		return "", bootstrapConfig{}, false
	}

	conf, ok := extractBootstrapConfig(string(body))
	if !ok {
		s.logger.Warn("bootstrap page carried no parseable configuration blob")
		return "", bootstrapConfig{}, false
	}

	// The jar has accumulated Set-Cookie headers across the whole redirect
	// chain. A token matching the one we sent means no rotation happened.
	var session string
	for _, c := range jar.Cookies(base) {
		if c.Name == SessionCookieName && c.Value != currentSession {
			session = c.Value
			break
		}
	}

	return session, conf, true
}
