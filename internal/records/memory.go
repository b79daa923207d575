package records

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// MemoryStore keeps rows in process with the same ordering and error
// semantics as Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[types.ID]Patient
	sessions map[types.ID]Session
	uploads  map[types.ID]Upload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[types.ID]Patient),
		sessions: make(map[types.ID]Session),
		uploads:  make(map[types.ID]Upload),
	}
}

func (m *MemoryStore) PutPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryStore) PutSession(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Record = copyRecord(s.Record)
	m.sessions[s.ID] = s
}

func (m *MemoryStore) PutUpload(u Upload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[u.ID] = u
}

func (m *MemoryStore) UploadsByIDs(ctx context.Context, ids []types.ID) ([]Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Upload
	seen := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		if u, ok := m.uploads[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) ProcessedUploads(ctx context.Context, sessionID types.ID) ([]Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Upload
	for _, u := range m.uploads {
		if u.SessionID == sessionID && u.IsProcessed {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) MarkUploadProcessed(ctx context.Context, id types.ID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return errors.NotFound("upload", id.String())
	}
	u.OCRText = &text
	u.IsProcessed = true
	m.uploads[id] = u
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id types.ID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NotFound("session", id.String())
	}
	s.Record = copyRecord(s.Record)
	return &s, nil
}

func (m *MemoryStore) GetPatient(ctx context.Context, id types.ID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, errors.NotFound("patient", id.String())
	}
	return &p, nil
}

func (m *MemoryStore) RecentSessions(ctx context.Context, patientID types.ID, q SessionQuery) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Session
	for _, s := range m.sessions {
		if s.PatientID != patientID {
			continue
		}
		if q.ExcludeStatus != "" && s.Status == q.ExcludeStatus {
			continue
		}
		s.Record = copyRecord(s.Record)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.After(out[j].SessionDate)
		}
		return sessionNumber(out[i]) > sessionNumber(out[j])
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) SaveClinicalRecord(ctx context.Context, sessionID types.ID, rec RawRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errors.NotFound("session", sessionID.String())
	}
	s.Record = make(RawRecord, len(Groups))
	for _, name := range Groups {
		if raw := rec[name]; len(raw) > 0 {
			s.Record[name] = append(json.RawMessage(nil), raw...)
		}
	}
	m.sessions[sessionID] = s
	return nil
}

// sessionNumber sorts unnumbered sessions last, matching NULLS LAST.
func sessionNumber(s Session) int {
	if s.SessionNumber == nil {
		return -1
	}
	return *s.SessionNumber
}

func copyRecord(r RawRecord) RawRecord {
	if r == nil {
		return nil
	}
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
