package handlers

import (
	"net/http"
	"time"

	"github.com/h2ogate/h2ogate/pkg/catalog"
	"github.com/h2ogate/h2ogate/pkg/gateway/types"
)

const modelOwner = "h2ogpte"

// ModelsHandler serves GET /v1/models.
type ModelsHandler struct{}

// NewModelsHandler creates the model listing handler.
func NewModelsHandler() *ModelsHandler {
	return &ModelsHandler{}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	created := time.Now().Unix()

	all := catalog.Models()
	models := make([]types.Model, 0, len(all))
	for _, m := range all {
		models = append(models, types.Model{
			ID:      m.ID,
			Object:  "model",
			Created: created,
			OwnedBy: modelOwner,
		})
	}

	writeJSON(w, http.StatusOK, types.ModelsResponse{Object: "list", Data: models})
}

// ModelHandler serves GET /v1/models/{id}. Unknown IDs are echoed back
// rather than rejected: the catalog is a snapshot and the backend accepts
// model names the snapshot may not list yet.
type ModelHandler struct{}

// NewModelHandler creates the single-model handler.
func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	writeJSON(w, http.StatusOK, types.Model{
		ID:      id,
		Object:  "model",
		Created: time.Now().Unix(),
		OwnedBy: modelOwner,
	})
}
