// Package notification delivers rendered clinical histories to patients by
// email.
package notification

import (
	"time"

	"github.com/tulugarseguro/agentes/internal/shared/types"
)

// Message is one HTML email to one recipient.
type Message struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"-"`
	SessionID types.ID  `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SendRequest asks for a session's clinical history to be mailed.
// PatientName is used only when the patient row cannot be found.
type SendRequest struct {
	SessionID    types.ID
	PatientEmail string
	PatientName  string
}
