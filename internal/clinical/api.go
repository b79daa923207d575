package clinical

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/respond"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Handler provides HTTP handlers for the clinical module
type Handler struct {
	filler *Filler
}

func NewHandler(filler *Filler) *Handler {
	return &Handler{filler: filler}
}

// Routes registers the clinical routes. POST /fill answers with the tagged
// FillResult so callers can see repairs and ungrounded fields.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/fill", h.Fill)

	return r
}

// RecordRoutes serves POST /fill with the bare clinical record, the shape
// clients of the unversioned routes expect.
func (h *Handler) RecordRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/fill", h.FillRecord)

	return r
}

type fillRequest struct {
	SessionID string `json:"session_id"`
	Save      bool   `json:"save"`
}

// Fill handles POST /clinical/fill
func (h *Handler) Fill(w http.ResponseWriter, r *http.Request) {
	result, ok := h.fill(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// FillRecord handles POST /clinical/fill on the unversioned mount.
func (h *Handler) FillRecord(w http.ResponseWriter, r *http.Request) {
	result, ok := h.fill(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, result.Record)
}

func (h *Handler) fill(w http.ResponseWriter, r *http.Request) (*FillResult, bool) {
	var req fillRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return nil, false
	}

	sessionID, err := types.ParseID(req.SessionID)
	if err != nil {
		respond.Error(w, errors.BadRequest("session_id must be a UUID"))
		return nil, false
	}

	result, err := h.filler.Fill(r.Context(), FillRequest{SessionID: sessionID, Save: req.Save})
	if err != nil {
		respond.Error(w, err)
		return nil, false
	}
	return result, true
}
