package records

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

func ptr[T any](v T) *T { return &v }

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestProcessedUploadsOrder(t *testing.T) {
	store := NewMemoryStore()
	session := types.NewID()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	store.PutUpload(Upload{ID: "c", SessionID: session, FileURL: "u3", OCRText: ptr("tres"), IsProcessed: true, CreatedAt: base.Add(time.Minute)})
	store.PutUpload(Upload{ID: "b", SessionID: session, FileURL: "u2", OCRText: ptr("dos"), IsProcessed: true, CreatedAt: base})
	store.PutUpload(Upload{ID: "a", SessionID: session, FileURL: "u1", OCRText: ptr("uno"), IsProcessed: true, CreatedAt: base})
	store.PutUpload(Upload{ID: "d", SessionID: session, FileURL: "u4", CreatedAt: base})
	store.PutUpload(Upload{ID: "e", SessionID: types.NewID(), FileURL: "u5", OCRText: ptr("x"), IsProcessed: true, CreatedAt: base})

	got, err := store.ProcessedUploads(context.Background(), session)
	require.NoError(t, err)

	ids := make([]types.ID, len(got))
	for i, u := range got {
		ids[i] = u.ID
	}
	assert.Equal(t, []types.ID{"a", "b", "c"}, ids)
}

func TestMarkUploadProcessed(t *testing.T) {
	store := NewMemoryStore()
	store.PutUpload(Upload{ID: "u-1", SessionID: "s-1", FileURL: "https://files/1.jpg"})

	require.NoError(t, store.MarkUploadProcessed(context.Background(), "u-1", ""))

	got, err := store.UploadsByIDs(context.Background(), []types.ID{"u-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsProcessed)
	require.NotNil(t, got[0].OCRText)
	assert.Equal(t, "", *got[0].OCRText)

	err = store.MarkUploadProcessed(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMarkUploadProcessedCancelled(t *testing.T) {
	store := NewMemoryStore()
	store.PutUpload(Upload{ID: "u-1", SessionID: "s-1", FileURL: "f"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.MarkUploadProcessed(ctx, "u-1", "texto"))

	got, _ := store.UploadsByIDs(context.Background(), []types.ID{"u-1"})
	assert.False(t, got[0].IsProcessed)
	assert.Nil(t, got[0].OCRText)
}

func TestRecentSessions(t *testing.T) {
	store := NewMemoryStore()
	patient := types.ID("p-1")

	store.PutSession(Session{ID: "s1", PatientID: patient, SessionNumber: ptr(1), SessionDate: day(1), Status: SessionStatusCompleted})
	store.PutSession(Session{ID: "s2", PatientID: patient, SessionNumber: ptr(2), SessionDate: day(8), Status: SessionStatusSaved})
	store.PutSession(Session{ID: "s3", PatientID: patient, SessionNumber: ptr(3), SessionDate: day(8), Status: SessionStatusCompleted})
	store.PutSession(Session{ID: "s4", PatientID: patient, SessionNumber: ptr(4), SessionDate: day(15), Status: SessionStatusDraft})
	store.PutSession(Session{ID: "other", PatientID: "p-2", SessionDate: day(20), Status: SessionStatusCompleted})

	tests := []struct {
		name string
		q    SessionQuery
		want []types.ID
	}{
		{"all", SessionQuery{}, []types.ID{"s4", "s3", "s2", "s1"}},
		{"exclude draft", SessionQuery{ExcludeStatus: SessionStatusDraft}, []types.ID{"s3", "s2", "s1"}},
		{"limit", SessionQuery{ExcludeStatus: SessionStatusDraft, Limit: 2}, []types.ID{"s3", "s2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.RecentSessions(context.Background(), patient, tt.q)
			require.NoError(t, err)
			ids := make([]types.ID, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSaveClinicalRecord(t *testing.T) {
	store := NewMemoryStore()
	store.PutSession(Session{ID: "s1", PatientID: "p1", SessionDate: day(1), Status: SessionStatusDraft,
		Record: RawRecord{"plan": json.RawMessage(`{"tarea":"vieja"}`)}})

	rec := RawRecord{
		"motivo_consulta": json.RawMessage(`{"texto_paciente":"ansiedad"}`),
		"objetivos":       json.RawMessage(`["dormir mejor"]`),
		"desconocido":     json.RawMessage(`{}`),
	}
	require.NoError(t, store.SaveClinicalRecord(context.Background(), "s1", rec))

	s, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"texto_paciente":"ansiedad"}`, string(s.Record["motivo_consulta"]))
	assert.NotContains(t, s.Record, "plan")
	assert.NotContains(t, s.Record, "desconocido")

	err = store.SaveClinicalRecord(context.Background(), "nope", rec)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetSession(context.Background(), "x")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = store.GetPatient(context.Background(), "x")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "Ana", Patient{FullName: "Ana María Pérez", PreferredName: ptr("Ana")}.DisplayName())
	assert.Equal(t, "Ana María Pérez", Patient{FullName: "Ana María Pérez", PreferredName: ptr(" ")}.DisplayName())
	assert.Equal(t, "Paciente", Patient{}.DisplayName())

	assert.Equal(t, "sin nombre", Upload{}.DisplayName())
	assert.Equal(t, "hoja1.jpg", Upload{FileName: ptr("hoja1.jpg")}.DisplayName())
}
