package ocr

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/respond"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Handler provides HTTP handlers for the OCR module
type Handler struct {
	extractor *Extractor
}

func NewHandler(extractor *Extractor) *Handler {
	return &Handler{extractor: extractor}
}

// Routes registers the OCR routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/extract", h.Extract)

	return r
}

type extractRequest struct {
	SessionID string   `json:"session_id"`
	UploadIDs []string `json:"upload_ids"`
}

// Extract handles POST /ocr/extract
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	sessionID, err := types.ParseID(req.SessionID)
	if err != nil {
		respond.Error(w, errors.BadRequest("session_id must be a UUID"))
		return
	}
	if len(req.UploadIDs) == 0 {
		respond.Error(w, errors.BadRequest("upload_ids is required"))
		return
	}

	ids := make([]types.ID, 0, len(req.UploadIDs))
	for _, s := range req.UploadIDs {
		id, err := types.ParseID(s)
		if err != nil {
			respond.Error(w, errors.BadRequest("upload_ids must contain UUIDs"))
			return
		}
		ids = append(ids, id)
	}

	batch, err := h.extractor.Extract(r.Context(), sessionID, ids)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, batch)
}
