package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/h2ogate/h2ogate/pkg/gateway/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errResp *types.ErrorResponse) {
	writeJSON(w, status, errResp)
}
