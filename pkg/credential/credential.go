// Package credential manages the backend guest identity: the persisted
// credential record, bootstrap-page acquisition and renewal, and the
// process-wide refresh gate that serializes recovery after authentication
// failures.
package credential

import "time"

// Credential is one complete backend identity. It is either fully populated
// or absent; partial credentials are never persisted.
type Credential struct {
	// Session is the value of the h2ogpte.session cookie.
	Session string `json:"session"`

	// CSRFToken is the anti-forgery token required on every mutating call,
	// distinct from the session cookie.
	CSRFToken string `json:"csrf_token"`

	// UserID is the backend-assigned user identifier.
	UserID string `json:"user_id"`

	// Username is the backend-assigned display name.
	Username string `json:"username"`

	// CreatedAt is when this identity was first acquired.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is updated every time the record is loaded from disk.
	LastUsedAt time.Time `json:"last_used_at"`
}

// Ready reports whether the credential carries both tokens needed for an
// authenticated backend call.
func (c *Credential) Ready() bool {
	return c != nil && c.Session != "" && c.CSRFToken != ""
}
