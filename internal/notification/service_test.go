package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/config"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store     *records.MemoryStore
	provider  *MockEmailProvider
	service   *Service
	sessionID types.ID
	orphanID  types.ID
}

func newFixture() *fixture {
	store := records.NewMemoryStore()
	patientID := types.NewID()
	store.PutPatient(records.Patient{ID: patientID, FullName: "Laura Gómez"})

	sessionID := types.NewID()
	store.PutSession(records.Session{
		ID: sessionID, PatientID: patientID, SessionNumber: ptr(7),
		SessionDate: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		Status:      records.SessionStatusCompleted,
		Record: records.RawRecord{
			"motivo_consulta": json.RawMessage(`{"texto_paciente": "duelo"}`),
		},
	})

	orphanID := types.NewID()
	store.PutSession(records.Session{ID: orphanID, PatientID: types.NewID(), Status: records.SessionStatusSaved})

	provider := NewMockEmailProvider()
	return &fixture{
		store:     store,
		provider:  provider,
		service:   NewService(store, provider, events.NewLogBus(zap.NewNop()), zap.NewNop()),
		sessionID: sessionID,
		orphanID:  orphanID,
	}
}

func TestSendClinicalHistory(t *testing.T) {
	f := newFixture()

	msg, err := f.service.SendClinicalHistory(context.Background(), SendRequest{
		SessionID: f.sessionID, PatientEmail: "laura@example.com", PatientName: "Laura",
	})
	require.NoError(t, err)
	assert.Equal(t, "Historia clínica enviada a laura@example.com", msg)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "laura@example.com", sent[0].To)
	assert.Equal(t, "Historia Clínica - Sesión N° 7 | Tu Lugar Seguro", sent[0].Subject)
	assert.Equal(t, f.sessionID, sent[0].SessionID)
	assert.Contains(t, sent[0].HTML, "<strong>Paciente:</strong> Laura Gómez<br>")
	assert.Contains(t, sent[0].HTML, "<li><strong>Texto del paciente:</strong> duelo</li>")
}

func TestSendClinicalHistoryMissingPatientUsesRequestName(t *testing.T) {
	f := newFixture()

	_, err := f.service.SendClinicalHistory(context.Background(), SendRequest{
		SessionID: f.orphanID, PatientEmail: "p@example.com", PatientName: "Pedro",
	})
	require.NoError(t, err)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, "<strong>Paciente:</strong> Pedro<br>")
	assert.Equal(t, "Historia Clínica - Sesión N°  | Tu Lugar Seguro", sent[0].Subject)
}

func TestSendClinicalHistoryErrors(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.SendClinicalHistory(context.Background(), SendRequest{
			SessionID: types.NewID(), PatientEmail: "p@example.com",
		})
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.Empty(t, f.provider.Sent())
	})

	t.Run("missing address", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.SendClinicalHistory(context.Background(), SendRequest{SessionID: f.sessionID})
		assert.ErrorIs(t, err, errors.ErrBadRequest)
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture()
		f.provider.SetFailOnSend(true)
		_, err := f.service.SendClinicalHistory(context.Background(), SendRequest{
			SessionID: f.sessionID, PatientEmail: "p@example.com",
		})
		assert.ErrorIs(t, err, errors.ErrUpstream)
		assert.Contains(t, err.Error(), "mock send failure")
	})

	t.Run("smtp not configured", func(t *testing.T) {
		f := newFixture()
		svc := NewService(f.store, NewSMTPProvider(config.SMTPConfig{Host: "smtp.example.com", Port: 587}),
			events.NewLogBus(zap.NewNop()), zap.NewNop())
		_, err := svc.SendClinicalHistory(context.Background(), SendRequest{
			SessionID: f.sessionID, PatientEmail: "p@example.com",
		})
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})
}

func TestClinicalHistoryHandler(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.service)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"sent", `{"session_id":"` + f.sessionID.String() + `","patient_email":"a@example.com","patient_name":"A"}`,
			http.StatusOK, `{"message":"Historia clínica enviada a a@example.com"}`},
		{"bad id", `{"session_id":"?","patient_email":"a@example.com"}`, http.StatusBadRequest, ""},
		{"unknown session", `{"session_id":"` + types.NewID().String() + `","patient_email":"a@example.com"}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/clinical-history", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.want != "" {
				assert.JSONEq(t, tt.want, rec.Body.String())
			}
		})
	}
}
