package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/tulugarseguro/agentes/internal/llm"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/events"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	"github.com/tulugarseguro/agentes/internal/shared/types"
	"go.uber.org/zap"
)

const (
	fillMaxTokens  = 8192
	notesSeparator = "\n\n---\n\n"
)

// Store is what the filler needs from the record store.
type Store interface {
	GetSession(ctx context.Context, id types.ID) (*records.Session, error)
	ProcessedUploads(ctx context.Context, sessionID types.ID) ([]records.Upload, error)
	SaveClinicalRecord(ctx context.Context, sessionID types.ID, rec records.RawRecord) error
}

type FillRequest struct {
	SessionID types.ID
	Save      bool
}

// FillResult is a validated record. Rejected documents are returned as
// errors, never as results.
type FillResult struct {
	Status           Status   `json:"status"`
	Record           *Record  `json:"record"`
	Issues           []string `json:"issues"`
	UngroundedFields []string `json:"ungrounded_fields"`
	Saved            bool     `json:"saved"`
}

// Filler maps a session's transcribed notes onto the clinical schema with
// one model call.
type Filler struct {
	store Store
	model llm.Completer
	bus   events.Publisher
	log   *zap.Logger
}

func NewFiller(store Store, model llm.Completer, bus events.Publisher, log *zap.Logger) *Filler {
	return &Filler{store: store, model: model, bus: bus, log: log}
}

func (f *Filler) Fill(ctx context.Context, req FillRequest) (*FillResult, error) {
	if _, err := f.store.GetSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	uploads, err := f.store.ProcessedUploads(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	notes, used := CombineNotes(uploads)
	if used == 0 {
		return nil, errors.NoContent(
			"No hay texto extraído para esta sesión. Ejecuta primero el OCR.",
			map[string]string{"session_id": req.SessionID.String()},
		)
	}

	resp, err := f.model.Complete(ctx, llm.Request{
		Operation: llm.OperationFill,
		Prompt:    FillPrompt(notes),
		MaxTokens: fillMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	doc, err := ParseResponse(resp.Text)
	if err != nil {
		metrics.RecordFill("malformed", 0)
		return nil, err
	}

	v := Validate(doc)
	if v.Status == StatusRejected {
		metrics.RecordFill(string(v.Status), 0)
		f.log.Warn("fill response rejected",
			zap.String("session_id", req.SessionID.String()),
			zap.Strings("issues", v.Issues),
		)
		appErr := errors.MalformedResponse(
			fmt.Errorf("schema validation failed: %s", strings.Join(v.Issues, "; ")),
			StripFence(resp.Text),
		)
		return nil, appErr
	}

	result := &FillResult{
		Status:           v.Status,
		Record:           v.Record,
		Issues:           nonNil(v.Issues),
		UngroundedFields: nonNil(CheckGrounding(v.Record, notes)),
	}
	metrics.RecordFill(string(result.Status), len(result.UngroundedFields))

	if len(result.UngroundedFields) > 0 {
		f.log.Info("filled fields not found in notes",
			zap.String("session_id", req.SessionID.String()),
			zap.Strings("fields", result.UngroundedFields),
		)
	}

	if req.Save {
		raw, err := result.Record.ToRaw()
		if err != nil {
			return nil, errors.Internal(err)
		}
		if err := f.store.SaveClinicalRecord(ctx, req.SessionID, raw); err != nil {
			return nil, err
		}
		result.Saved = true
	}

	f.publish(ctx, req.SessionID, result, used)
	return result, nil
}

func (f *Filler) publish(ctx context.Context, sessionID types.ID, result *FillResult, uploads int) {
	event := events.NewEvent(events.RecordFilled, "clinical", map[string]any{
		"session_id":        sessionID.String(),
		"status":            string(result.Status),
		"uploads":           uploads,
		"issues":            len(result.Issues),
		"ungrounded_fields": len(result.UngroundedFields),
		"saved":             result.Saved,
	}).WithRequestID(ctx)
	if err := f.bus.Publish(ctx, event); err != nil {
		f.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

// CombineNotes joins the non-blank transcriptions in the given order, each
// headed by its file name. It returns how many uploads contributed.
func CombineNotes(uploads []records.Upload) (string, int) {
	var parts []string
	for _, u := range uploads {
		if u.OCRText == nil || strings.TrimSpace(*u.OCRText) == "" {
			continue
		}
		parts = append(parts, "[Archivo: "+u.DisplayName()+"]\n"+*u.OCRText)
	}
	return strings.Join(parts, notesSeparator), len(parts)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
