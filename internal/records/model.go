// Package records holds the patient, session and upload rows the pipeline
// reads and writes, and the stores that persist them.
package records

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// SessionStatus is open-ended; values other than these pass through.
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusSaved     SessionStatus = "saved"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Groups names the twelve clinical record groups in document order. Each is
// a column on clinical_sessions.
var Groups = []string{
	"motivo_consulta",
	"historia_problema",
	"tamizajes",
	"riesgo_seguridad",
	"antecedentes",
	"contexto_psicosocial",
	"observaciones_clinicas",
	"formulacion_clinica",
	"objetivos",
	"intervenciones",
	"plan",
	"cierre_administrativo",
}

// RawRecord holds group values as stored. A value is a JSON object or array,
// or a JSON string containing serialized JSON.
type RawRecord map[string]json.RawMessage

// Upload is one photographed page attached to a session.
// OCRText is non-nil exactly when IsProcessed is true.
type Upload struct {
	ID          types.ID  `json:"id"`
	SessionID   types.ID  `json:"session_id"`
	FileName    *string   `json:"file_name,omitempty"`
	FileURL     string    `json:"file_url"`
	OCRText     *string   `json:"ocr_text,omitempty"`
	IsProcessed bool      `json:"is_processed"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName is the file name, or "sin nombre" when unset.
func (u Upload) DisplayName() string {
	if u.FileName == nil || strings.TrimSpace(*u.FileName) == "" {
		return "sin nombre"
	}
	return *u.FileName
}

type Session struct {
	ID            types.ID      `json:"id"`
	PatientID     types.ID      `json:"patient_id"`
	SessionNumber *int          `json:"session_number,omitempty"`
	SessionDate   time.Time     `json:"session_date"`
	SessionTime   *string       `json:"session_time,omitempty"`
	Modality      *string       `json:"modality,omitempty"`
	Status        SessionStatus `json:"status"`
	Record        RawRecord     `json:"record,omitempty"`
}

type Patient struct {
	ID            types.ID `json:"id"`
	FullName      string   `json:"full_name"`
	PreferredName *string  `json:"preferred_name,omitempty"`
	Age           *int     `json:"age,omitempty"`
	Email         *string  `json:"email,omitempty"`
}

// DisplayName prefers the preferred name, then the full name.
func (p Patient) DisplayName() string {
	if p.PreferredName != nil && strings.TrimSpace(*p.PreferredName) != "" {
		return *p.PreferredName
	}
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return "Paciente"
}

// SessionQuery selects a patient's most recent sessions.
type SessionQuery struct {
	ExcludeStatus SessionStatus
	Limit         int
}
