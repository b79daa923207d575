package ocr

import (
	"errors"
	"fmt"

	"github.com/tulugarseguro/agentes/internal/shared/types"
)

var (
	ErrFetch      = errors.New("upload fetch failed")
	ErrExtraction = errors.New("text extraction failed")
)

// FetchError reports an unreachable file reference or a non-success status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// ExtractionError reports a failed model call for one upload.
type ExtractionError struct {
	UploadID types.ID
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract upload %s: %v", e.UploadID, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}
