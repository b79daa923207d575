package events

import (
	"context"
	"time"

	"github.com/tulugarseguro/agentes/internal/shared/config"
	"go.uber.org/zap"
)

// Pipeline event types.
const (
	UploadProcessed     = "ocr.upload.processed"
	RecordFilled        = "clinical.record.filled"
	SummaryGenerated    = "summary.generated"
	ClinicalHistorySent = "clinical_history.sent"
)

// Publisher records pipeline events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus is a Publisher with a connection lifecycle.
type EventBus interface {
	Publisher
	Close()
	Health(ctx context.Context) error
	Name() string
}

// NewEventBus connects to KurrentDB when enabled, otherwise returns a bus
// that only logs.
func NewEventBus(ctx context.Context, cfg config.KurrentDBConfig, log *zap.Logger) (EventBus, error) {
	if !cfg.Enabled {
		return NewLogBus(log), nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bus, err := NewBus(cfg)
	if err != nil {
		return nil, err
	}
	if err := bus.Health(timeoutCtx); err != nil {
		bus.Close()
		return nil, err
	}
	return bus, nil
}

// LogBus writes events to the logger instead of a stream store.
type LogBus struct {
	log *zap.Logger
}

func NewLogBus(log *zap.Logger) *LogBus {
	return &LogBus{log: log}
}

func (b *LogBus) Publish(ctx context.Context, event Event) error {
	b.log.Debug("event",
		zap.String("type", event.Type),
		zap.String("id", event.ID),
		zap.String("correlation_id", event.CorrelationID),
	)
	return nil
}

func (b *LogBus) Close() {}

func (b *LogBus) Health(ctx context.Context) error { return nil }

func (b *LogBus) Name() string { return "event_bus" }

var (
	_ EventBus = (*Bus)(nil)
	_ EventBus = (*LogBus)(nil)
)
