package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/respond"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Handler provides HTTP handlers for the email module
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the email routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/clinical-history", h.SendClinicalHistory)

	return r
}

type sendRequest struct {
	SessionID    string `json:"session_id"`
	PatientEmail string `json:"patient_email"`
	PatientName  string `json:"patient_name"`
}

// SendClinicalHistory handles POST /email/clinical-history
func (h *Handler) SendClinicalHistory(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	sessionID, err := types.ParseID(req.SessionID)
	if err != nil {
		respond.Error(w, errors.BadRequest("session_id must be a UUID"))
		return
	}

	message, err := h.service.SendClinicalHistory(r.Context(), SendRequest{
		SessionID:    sessionID,
		PatientEmail: req.PatientEmail,
		PatientName:  req.PatientName,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"message": message})
}
