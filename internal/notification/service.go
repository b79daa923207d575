package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/render"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
)

// Store is what the service needs from the record store.
type Store interface {
	GetSession(ctx context.Context, id types.ID) (*records.Session, error)
	GetPatient(ctx context.Context, id types.ID) (*records.Patient, error)
}

// Service renders and mails clinical histories.
type Service struct {
	store    Store
	provider EmailProvider
	bus      events.Publisher
	log      *zap.Logger
}

// NewService creates a new notification service
func NewService(store Store, provider EmailProvider, bus events.Publisher, log *zap.Logger) *Service {
	return &Service{store: store, provider: provider, bus: bus, log: log}
}

// SendClinicalHistory renders the session's clinical history and mails it to
// the patient. It returns the confirmation shown to the therapist.
func (s *Service) SendClinicalHistory(ctx context.Context, req SendRequest) (string, error) {
	if strings.TrimSpace(req.PatientEmail) == "" {
		return "", errors.BadRequest("patient_email is required")
	}

	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return "", err
	}

	patient, err := s.store.GetPatient(ctx, session.PatientID)
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		patient = &records.Patient{ID: session.PatientID, FullName: req.PatientName}
	case err != nil:
		return "", err
	}

	html, err := render.Render(render.Document{Patient: patient, Session: *session})
	if err != nil {
		return "", errors.Internal(err)
	}

	msg := &Message{
		ID:        uuid.New().String(),
		To:        req.PatientEmail,
		Subject:   Subject(session),
		HTML:      html,
		SessionID: session.ID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.provider.Send(ctx, msg)
	metrics.RecordEmail(err)
	if err != nil {
		s.log.Warn("clinical history delivery failed",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return "", err
		}
		return "", errors.Upstream("smtp", err)
	}

	s.log.Info("clinical history sent",
		zap.String("session_id", session.ID.String()),
		zap.String("message_id", msg.ID),
	)
	event := events.NewEvent(events.ClinicalHistorySent, "notification", map[string]any{
		"session_id": session.ID.String(),
		"patient_id": session.PatientID.String(),
		"message_id": msg.ID,
	}).WithRequestID(ctx)
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}

	return fmt.Sprintf("Historia clínica enviada a %s", req.PatientEmail), nil
}

// Subject is the email subject for a session's clinical history.
func Subject(session *records.Session) string {
	number := ""
	if session.SessionNumber != nil {
		number = strconv.Itoa(*session.SessionNumber)
	}
	return fmt.Sprintf("Historia Clínica - Sesión N° %s | Tu Lugar Seguro", number)
}
