// Package ocr transcribes photographed session notes: it fetches each
// upload's image and has the vision model transcribe it.
package ocr

import (
	"context"
	stderrors "errors"

	"github.com/tulugarseguro/agentes/internal/llm"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const ocrMaxTokens = 4096

const ocrInstruction = "Extrae todo el texto escrito en esta imagen de notas clínicas psicológicas. " +
	"Preserva la estructura, listas, puntuación y saltos de línea tal como aparecen. " +
	"Si hay palabras ilegibles, indícalo con [ilegible]. " +
	"Devuelve únicamente el texto extraído, sin comentarios adicionales."

// Store is what the extractor needs from the record store.
type Store interface {
	UploadsByIDs(ctx context.Context, ids []types.ID) ([]records.Upload, error)
	MarkUploadProcessed(ctx context.Context, id types.ID, text string) error
}

type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Result is the outcome for one requested upload.
type Result struct {
	UploadID types.ID `json:"upload_id"`
	Status   Status   `json:"status"`
	OCRText  *string  `json:"ocr_text"`
	Error    string   `json:"error,omitempty"`
}

// Batch holds one Result per distinct requested upload, in request order.
type Batch struct {
	Results []Result `json:"results"`
}

// Processed counts the uploads that were transcribed and persisted.
func (b *Batch) Processed() int {
	n := 0
	for _, r := range b.Results {
		if r.Status == StatusProcessed {
			n++
		}
	}
	return n
}

type Extractor struct {
	store       Store
	fetcher     Fetcher
	model       llm.Completer
	bus         events.Publisher
	log         *zap.Logger
	concurrency int
}

func NewExtractor(store Store, fetcher Fetcher, model llm.Completer, bus events.Publisher, log *zap.Logger, concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{
		store:       store,
		fetcher:     fetcher,
		model:       model,
		bus:         bus,
		log:         log,
		concurrency: concurrency,
	}
}

// Extract transcribes the given uploads of a session. Each upload is fetched,
// transcribed and persisted independently; a failure is reported on its own
// result and does not stop its siblings. A missing model configuration or a
// cancelled context fails the whole batch.
func (e *Extractor) Extract(ctx context.Context, sessionID types.ID, uploadIDs []types.ID) (*Batch, error) {
	ids := dedupe(uploadIDs)

	uploads, err := e.store.UploadsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, errors.NoContent("No se encontraron uploads", map[string]string{
			"session_id": sessionID.String(),
		})
	}

	byID := make(map[types.ID]records.Upload, len(uploads))
	for _, u := range uploads {
		byID[u.ID] = u
	}

	results := make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, id := range ids {
		results[i] = Result{UploadID: id, Status: StatusFailed}

		u, ok := byID[id]
		switch {
		case !ok:
			results[i].Error = "upload not found"
			metrics.RecordOCRUpload(string(StatusFailed))
			continue
		case u.SessionID != sessionID:
			results[i].Error = "upload belongs to another session"
			metrics.RecordOCRUpload(string(StatusFailed))
			continue
		}

		i := i
		g.Go(func() error {
			return e.process(gctx, u, &results[i])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Batch{Results: results}, nil
}

// process fills res for one upload. It returns an error only when the whole
// batch must stop.
func (e *Extractor) process(ctx context.Context, u records.Upload, res *Result) error {
	log := e.log.With(zap.String("upload_id", u.ID.String()), zap.String("session_id", u.SessionID.String()))

	fail := func(err error) {
		res.Error = err.Error()
		metrics.RecordOCRUpload(string(StatusFailed))
		log.Warn("upload transcription failed", zap.Error(err))
	}

	img, err := e.fetcher.Fetch(ctx, u.FileURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Timeout(ctxErr)
		}
		fail(err)
		return nil
	}

	resp, err := e.model.Complete(ctx, llm.Request{
		Operation: llm.OperationOCR,
		Prompt:    ocrInstruction,
		Image:     img,
		MaxTokens: ocrMaxTokens,
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrConfiguration) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Timeout(ctxErr)
		}
		fail(&ExtractionError{UploadID: u.ID, Err: err})
		return nil
	}

	if err := ctx.Err(); err != nil {
		return errors.Timeout(err)
	}
	if err := e.store.MarkUploadProcessed(ctx, u.ID, resp.Text); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Timeout(ctxErr)
		}
		fail(err)
		return nil
	}

	text := resp.Text
	res.Status = StatusProcessed
	res.OCRText = &text
	metrics.RecordOCRUpload(string(StatusProcessed))
	log.Info("upload transcribed", zap.Int("chars", len([]rune(text))))

	event := events.NewEvent(events.UploadProcessed, "ocr", map[string]any{
		"upload_id":  u.ID.String(),
		"session_id": u.SessionID.String(),
		"chars":      len([]rune(text)),
	}).WithRequestID(ctx)
	if err := e.bus.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
	return nil
}

func dedupe(ids []types.ID) []types.ID {
	seen := make(map[types.ID]bool, len(ids))
	out := make([]types.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
