package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Repository provides PostgreSQL access to patients, sessions and uploads.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uploadColumns = `id, session_id, file_name, file_url, ocr_text, is_processed, created_at`

func scanUpload(row pgx.Row) (Upload, error) {
	var u Upload
	err := row.Scan(&u.ID, &u.SessionID, &u.FileName, &u.FileURL, &u.OCRText, &u.IsProcessed, &u.CreatedAt)
	return u, err
}

func collectUploads(rows pgx.Rows) ([]Upload, error) {
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan upload")
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read uploads")
	}
	return uploads, nil
}

// UploadsByIDs returns the uploads that exist among ids, in no particular order.
func (r *Repository) UploadsByIDs(ctx context.Context, ids []types.ID) ([]Upload, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+uploadColumns+` FROM session_uploads WHERE id = ANY($1::uuid[])`, raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query uploads")
	}
	return collectUploads(rows)
}

// ProcessedUploads returns a session's processed uploads oldest first, with
// the id as tie-break.
func (r *Repository) ProcessedUploads(ctx context.Context, sessionID types.ID) ([]Upload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+uploadColumns+`
		FROM session_uploads
		WHERE session_id = $1 AND is_processed = true
		ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query processed uploads")
	}
	return collectUploads(rows)
}

// MarkUploadProcessed stores the text and the processed flag together.
func (r *Repository) MarkUploadProcessed(ctx context.Context, id types.ID, text string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE session_uploads SET ocr_text = $2, is_processed = true WHERE id = $1`, id, text)
	if err != nil {
		return errors.Wrap(err, "failed to update upload")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("upload", id.String())
	}
	return nil
}

func sessionColumns() string {
	return `id, patient_id, session_number, session_date, session_time, modality, status, ` +
		strings.Join(Groups, ", ")
}

func scanSession(row pgx.Row) (*Session, error) {
	s := &Session{}
	groups := make([][]byte, len(Groups))

	dest := []any{&s.ID, &s.PatientID, &s.SessionNumber, &s.SessionDate, &s.SessionTime, &s.Modality, &s.Status}
	for i := range groups {
		dest = append(dest, &groups[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	s.Record = make(RawRecord, len(Groups))
	for i, name := range Groups {
		if groups[i] != nil {
			s.Record[name] = json.RawMessage(groups[i])
		}
	}
	return s, nil
}

func (r *Repository) GetSession(ctx context.Context, id types.ID) (*Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns()+` FROM clinical_sessions WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("session", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}
	return s, nil
}

func (r *Repository) GetPatient(ctx context.Context, id types.ID) (*Patient, error) {
	p := &Patient{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, preferred_name, age, email
		FROM patients WHERE id = $1`, id).Scan(
		&p.ID, &p.FullName, &p.PreferredName, &p.Age, &p.Email,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find patient")
	}
	return p, nil
}

// RecentSessions returns up to q.Limit sessions, newest first.
func (r *Repository) RecentSessions(ctx context.Context, patientID types.ID, q SessionQuery) ([]Session, error) {
	args := []any{patientID}
	where := "patient_id = $1"
	if q.ExcludeStatus != "" {
		args = append(args, q.ExcludeStatus)
		where += fmt.Sprintf(" AND status <> $%d", len(args))
	}
	limit := ""
	if q.Limit > 0 {
		args = append(args, q.Limit)
		limit = fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns()+`
		FROM clinical_sessions
		WHERE `+where+`
		ORDER BY session_date DESC, session_number DESC NULLS LAST`+limit, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read sessions")
	}
	return sessions, nil
}

// SaveClinicalRecord overwrites every group column. Groups missing from rec
// are set to NULL.
func (r *Repository) SaveClinicalRecord(ctx context.Context, sessionID types.ID, rec RawRecord) error {
	sets := make([]string, len(Groups))
	args := []any{sessionID}
	for i, name := range Groups {
		args = append(args, nullableJSON(rec[name]))
		sets[i] = fmt.Sprintf("%s = $%d", name, len(args))
	}

	result, err := r.pool.Exec(ctx, `UPDATE clinical_sessions SET `+
		strings.Join(sets, ", ")+`, updated_at = NOW() WHERE id = $1`, args...)
	if err != nil {
		return errors.Wrap(err, "failed to save clinical record")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("session", sessionID.String())
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
