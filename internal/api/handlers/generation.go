package handlers

import (
	"net/http"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/request"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

// GenerationHandler serves the image and video generation endpoints
type GenerationHandler struct {
	generation *service.GenerationService
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generation *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generation: generation}
}

// Generate returns the handler for one workflow mode
// POST /api/image-edit, POST /api/video-edit/{mode}
func (h *GenerationHandler) Generate(mode workflow.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.GenerateInput
		if err := request.Decode(r, &in); err != nil {
			response.Error(w, r, err)
			return
		}

		res, err := h.generation.Generate(r.Context(), auth.GetUserID(r.Context()), mode, in)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.SuccessMessage(w, "Generation completed", res)
	}
}
