// Package respond writes JSON bodies and AppError payloads for HTTP handlers.
package respond

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/tulugarseguro/agentes/internal/shared/errors"
)

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error maps err onto its HTTP status. Bare context errors become a 504;
// any other error that is not an AppError becomes a 500 with the message
// kept in "detail".
func Error(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) &&
		(stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)) {
		appErr = errors.Timeout(err)
	}
	if appErr != nil {
		JSON(w, appErr.HTTPStatus, map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"detail":  appErr.Error(),
			"details": appErr.Details,
		})
		return
	}

	JSON(w, http.StatusInternalServerError, map[string]string{
		"error":  "internal server error",
		"code":   "INTERNAL_ERROR",
		"detail": err.Error(),
	})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.BadRequest("invalid request body: " + err.Error())
	}
	return nil
}
