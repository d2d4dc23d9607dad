package handlers

import "net/http"

// PoolStatus reports the session pool's current level.
type PoolStatus interface {
	Ready() int
}

// CredentialStatus reports whether a usable backend credential is held.
type CredentialStatus interface {
	HasCredential() bool
}

// HealthHandler serves GET /healthz with gateway liveness plus pool and
// credential state. It always answers 200: a degraded pool recovers on its
// own and should not get the process restarted by an orchestrator.
type HealthHandler struct {
	pool       PoolStatus
	credential CredentialStatus
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(pool PoolStatus, credential CredentialStatus) *HealthHandler {
	return &HealthHandler{pool: pool, credential: credential}
}

type healthResponse struct {
	Status          string `json:"status"`
	ReadySessions   int    `json:"ready_sessions"`
	CredentialReady bool   `json:"credential_ready"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		ReadySessions:   h.pool.Ready(),
		CredentialReady: h.credential.HasCredential(),
	})
}

// RootHandler serves GET / with a service banner.
type RootHandler struct{}

// NewRootHandler creates the root banner handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "H2OGPTE OpenAI-compatible gateway",
		"endpoints": []string{"/v1/models", "/v1/chat/completions"},
	})
}
