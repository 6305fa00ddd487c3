package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ctrlplane/internal/apperr"
)

// writeError renders err as the uniform {code, message, details} body,
// choosing the HTTP status the same way a gateway maps domain errors onto
// status codes in its proxy/compat handlers.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "INTERNAL", "message": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperr.Validation, apperr.CyclicReference:
		status = http.StatusBadRequest
	case apperr.Unauthorized:
		status = http.StatusForbidden
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.ReferentialIntegrity:
		status = http.StatusConflict
	case apperr.RecoveryInProgress:
		status = http.StatusConflict
	case apperr.EvaluationFailure, apperr.ExecutionFailure, apperr.DeadlineExceeded:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, appErr)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("httpapi: failed to encode response", "error", err)
	}
}
