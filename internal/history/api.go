package history

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/respond"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Handler provides HTTP handlers for the session summary module
type Handler struct {
	aggregator *Aggregator
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Routes registers the summary routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/sessions", h.Sessions)

	return r
}

type summaryRequest struct {
	PatientID       string  `json:"patient_id"`
	NextSessionDate *string `json:"next_session_date"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Sessions handles POST /summary/sessions
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	patientID, err := types.ParseID(req.PatientID)
	if err != nil {
		respond.Error(w, errors.BadRequest("patient_id must be a UUID"))
		return
	}

	sr := SummaryRequest{PatientID: patientID}
	if req.NextSessionDate != nil {
		sr.NextSessionDate = *req.NextSessionDate
	}

	summary, err := h.aggregator.Summarize(r.Context(), sr)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, summaryResponse{Summary: summary.Text})
}
