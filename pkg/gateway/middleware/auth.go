package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/h2ogate/h2ogate/pkg/gateway/types"
)

// Auth enforces the static API key on inbound requests. Both
// "Authorization: Bearer sk-xxx" and a bare "Authorization: sk-xxx" are
// accepted, matching what common OpenAI clients send. An empty configured
// key disables authentication entirely.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("Authorization")
			token = strings.TrimPrefix(token, "Bearer ")

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(types.NewAuthenticationError("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
