package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulugarseguro/agentes/internal/llm/llmtest"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/cache"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
)

const wantNarrative = "\n--- SESIÓN 1 (2025-01-10) ---\n" +
	"Motivo: ansiedad laboral\n" +
	"Objetivos: dormir mejor, reducir rumiación\n" +
	"Plan: registro de pensamientos | Tarea: diario\n" +
	"\n--- SESIÓN 2 (2025-01-17) ---\n" +
	"Intervenciones: respiración\n"

func ptr[T any](v T) *T { return &v }

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func seed(store *records.MemoryStore) types.ID {
	patientID := types.NewID()
	store.PutPatient(records.Patient{
		ID: patientID, FullName: "María José Pérez", PreferredName: ptr("Majo"), Age: ptr(34),
	})
	store.PutSession(records.Session{
		ID: types.NewID(), PatientID: patientID, SessionNumber: ptr(1), SessionDate: day(10),
		Status: records.SessionStatusCompleted,
		Record: records.RawRecord{
			"motivo_consulta": json.RawMessage(`{"texto_paciente": "ansiedad laboral"}`),
			"objetivos":       json.RawMessage(`["dormir mejor", "reducir rumiación"]`),
			"plan":            json.RawMessage(`"{\"plan_semana\": \"registro de pensamientos\", \"tarea\": \"diario\"}"`),
		},
	})
	store.PutSession(records.Session{
		ID: types.NewID(), PatientID: patientID, SessionDate: day(17),
		Status: records.SessionStatusSaved,
		Record: records.RawRecord{
			"formulacion_clinica": json.RawMessage(`"{roto"`),
			"intervenciones":      json.RawMessage(`{"otros": "respiración", "limites": null}`),
		},
	})
	store.PutSession(records.Session{
		ID: types.NewID(), PatientID: patientID, SessionNumber: ptr(3), SessionDate: day(24),
		Status: records.SessionStatusDraft,
		Record: records.RawRecord{
			"motivo_consulta": json.RawMessage(`{"texto_paciente": "borrador"}`),
		},
	})
	return patientID
}

func newAggregator(store Store, model *llmtest.Fake) *Aggregator {
	return NewAggregator(store, model, events.NewLogBus(zap.NewNop()), zap.NewNop())
}

func TestSummarizeExcludesDrafts(t *testing.T) {
	store := records.NewMemoryStore()
	patientID := seed(store)
	model := &llmtest.Fake{Text: "1. **Patrones observados**: ..."}

	summary, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{
		PatientID: patientID, NextSessionDate: "2025-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "1. **Patrones observados**: ...", summary.Text)
	assert.Equal(t, 2, summary.Sessions)
	assert.False(t, summary.Cached)

	reqs := model.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 2048, reqs[0].MaxTokens)
	prompt := reqs[0].Prompt
	assert.Contains(t, prompt, wantNarrative)
	assert.Contains(t, prompt, "PACIENTE: Majo (34 años)\n")
	assert.Contains(t, prompt, "La próxima sesión está programada para: 2025-02-01")
	assert.NotContains(t, prompt, "borrador")
}

func TestSummarizeFallsBackToDrafts(t *testing.T) {
	store := records.NewMemoryStore()
	patientID := types.NewID()
	store.PutPatient(records.Patient{ID: patientID, FullName: "Ana"})
	store.PutSession(records.Session{
		ID: types.NewID(), PatientID: patientID, SessionDate: day(3), Status: records.SessionStatusDraft,
		Record: records.RawRecord{"motivo_consulta": json.RawMessage(`{"texto_paciente": "primera consulta"}`)},
	})
	model := &llmtest.Fake{Text: "resumen"}

	summary, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sessions)

	prompt := model.Requests()[0].Prompt
	assert.Contains(t, prompt, "--- SESIÓN 1 (2025-01-03) ---\nMotivo: primera consulta\n")
	assert.Contains(t, prompt, "PACIENTE: Ana\n")
	assert.NotContains(t, prompt, "próxima sesión está programada")
}

func TestSummarizeUsesTenMostRecent(t *testing.T) {
	store := records.NewMemoryStore()
	patientID := types.NewID()
	store.PutPatient(records.Patient{ID: patientID, FullName: "Ana"})
	for n := 1; n <= 12; n++ {
		store.PutSession(records.Session{
			ID: types.NewID(), PatientID: patientID, SessionNumber: ptr(n), SessionDate: day(n),
			Status: records.SessionStatusCompleted,
		})
	}
	model := &llmtest.Fake{Text: "resumen"}

	summary, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Sessions)

	prompt := model.Requests()[0].Prompt
	assert.NotContains(t, prompt, "--- SESIÓN 1 (")
	assert.NotContains(t, prompt, "--- SESIÓN 2 (")
	assert.Contains(t, prompt, "--- SESIÓN 3 (")
	assert.Less(t, strings.Index(prompt, "--- SESIÓN 3 ("), strings.Index(prompt, "--- SESIÓN 12 ("))
}

func TestSummarizeErrors(t *testing.T) {
	store := records.NewMemoryStore()
	patientID := seed(store)
	lonely := types.NewID()
	store.PutPatient(records.Patient{ID: lonely, FullName: "Sin sesiones"})

	t.Run("unknown patient", func(t *testing.T) {
		model := &llmtest.Fake{Text: "x"}
		_, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{PatientID: types.NewID()})
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.Equal(t, 0, model.Calls())
	})

	t.Run("no history", func(t *testing.T) {
		model := &llmtest.Fake{Text: "x"}
		_, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{PatientID: lonely})
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.Contains(t, err.Error(), "No hay sesiones previas")
		assert.Equal(t, 0, model.Calls())
	})

	t.Run("model failure", func(t *testing.T) {
		model := &llmtest.Fake{Err: errors.Upstream("model", fmt.Errorf("overloaded"))}
		_, err := newAggregator(store, model).Summarize(context.Background(), SummaryRequest{PatientID: patientID})
		assert.ErrorIs(t, err, errors.ErrUpstream)
	})
}

func TestSummarizeCache(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := cache.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { kv.Close() })

	store := records.NewMemoryStore()
	patientID := seed(store)
	model := &llmtest.Fake{Text: "resumen"}
	agg := newAggregator(store, model).WithCache(kv, 6*time.Hour)

	first, err := agg.Summarize(context.Background(), SummaryRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := agg.Summarize(context.Background(), SummaryRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "resumen", second.Text)
	assert.Equal(t, 1, model.Calls())

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "briefing:"+patientID.String()+":"))
	assert.Equal(t, 6*time.Hour, mr.TTL(keys[0]))

	// A different next-session date is a different prompt.
	_, err = agg.Summarize(context.Background(), SummaryRequest{PatientID: patientID, NextSessionDate: "2025-02-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, model.Calls())
}

func TestSummarizeCacheUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	kv := cache.NewRedisKV(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}))
	t.Cleanup(func() { kv.Close() })

	store := records.NewMemoryStore()
	patientID := seed(store)
	model := &llmtest.Fake{Text: "resumen"}

	summary, err := newAggregator(store, model).WithCache(kv, time.Hour).
		Summarize(context.Background(), SummaryRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.Equal(t, "resumen", summary.Text)
	assert.Equal(t, 1, model.Calls())
}

func TestSessionsHandler(t *testing.T) {
	store := records.NewMemoryStore()
	patientID := seed(store)
	h := NewHandler(newAggregator(store, &llmtest.Fake{Text: "resumen clínico"}))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"patient_id":"` + patientID.String() + `","next_session_date":null}`, http.StatusOK},
		{"bad id", `{"patient_id":"1"}`, http.StatusBadRequest},
		{"unknown", `{"patient_id":"` + types.NewID().String() + `"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"summary":"resumen clínico"}`, rec.Body.String())
			}
		})
	}
}
