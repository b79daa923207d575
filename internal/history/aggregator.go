// Package history prepares a therapist's briefing for a patient's next
// session from their recent session records.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"github.com/tulugarseguro/agentes/internal/llm"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/cache"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
)

const (
	maxSessions      = 10
	summaryMaxTokens = 2048
)

// Store is what the aggregator needs from the record store.
type Store interface {
	GetPatient(ctx context.Context, id types.ID) (*records.Patient, error)
	RecentSessions(ctx context.Context, patientID types.ID, q records.SessionQuery) ([]records.Session, error)
}

// Cache stores generated briefings. Get returns cache.ErrMiss when the key
// is absent.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type SummaryRequest struct {
	PatientID       types.ID
	NextSessionDate string
}

type Summary struct {
	Text     string
	Sessions int
	Cached   bool
}

type Aggregator struct {
	store Store
	model llm.Completer
	bus   events.Publisher
	log   *zap.Logger

	cache Cache
	ttl   time.Duration
}

func NewAggregator(store Store, model llm.Completer, bus events.Publisher, log *zap.Logger) *Aggregator {
	return &Aggregator{store: store, model: model, bus: bus, log: log}
}

// WithCache enables briefing caching. Identical prompts within ttl reuse the
// stored text.
func (a *Aggregator) WithCache(c Cache, ttl time.Duration) *Aggregator {
	a.cache = c
	a.ttl = ttl
	return a
}

// Summarize builds the briefing for the patient's next session. The model
// text is returned verbatim.
func (a *Aggregator) Summarize(ctx context.Context, req SummaryRequest) (*Summary, error) {
	patient, err := a.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	sessions, err := a.recentSessions(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, errors.NoContent("No hay sesiones previas para este paciente", map[string]string{
			"patient_id": req.PatientID.String(),
		})
	}

	prompt := BuildPrompt(*patient, Narrative(sessions), req.NextSessionDate)
	key := cacheKey(req.PatientID, prompt)

	if text, ok := a.cached(ctx, key); ok {
		summary := &Summary{Text: text, Sessions: len(sessions), Cached: true}
		a.publish(ctx, req.PatientID, summary)
		return summary, nil
	}

	resp, err := a.model.Complete(ctx, llm.Request{
		Operation: llm.OperationSummary,
		Prompt:    prompt,
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	a.remember(ctx, key, resp.Text)

	summary := &Summary{Text: resp.Text, Sessions: len(sessions)}
	a.publish(ctx, req.PatientID, summary)
	return summary, nil
}

// recentSessions returns the latest non-draft sessions, or the latest of any
// status when there are none.
func (a *Aggregator) recentSessions(ctx context.Context, patientID types.ID) ([]records.Session, error) {
	sessions, err := a.store.RecentSessions(ctx, patientID, records.SessionQuery{
		ExcludeStatus: records.SessionStatusDraft,
		Limit:         maxSessions,
	})
	if err != nil || len(sessions) > 0 {
		return sessions, err
	}
	return a.store.RecentSessions(ctx, patientID, records.SessionQuery{Limit: maxSessions})
}

func (a *Aggregator) cached(ctx context.Context, key string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	text, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.RecordSummaryCache("hit")
		return text, true
	case stderrors.Is(err, cache.ErrMiss):
		metrics.RecordSummaryCache("miss")
	default:
		metrics.RecordSummaryCache("error")
		a.log.Warn("briefing cache read failed", zap.Error(err))
	}
	return "", false
}

func (a *Aggregator) remember(ctx context.Context, key, text string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, text, a.ttl); err != nil {
		a.log.Warn("briefing cache write failed", zap.Error(err))
	}
}

func (a *Aggregator) publish(ctx context.Context, patientID types.ID, s *Summary) {
	event := events.NewEvent(events.SummaryGenerated, "history", map[string]any{
		"patient_id": patientID.String(),
		"sessions":   s.Sessions,
		"cached":     s.Cached,
	}).WithRequestID(ctx)
	if err := a.bus.Publish(ctx, event); err != nil {
		a.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func cacheKey(patientID types.ID, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "briefing:" + patientID.String() + ":" + hex.EncodeToString(sum[:])
}
