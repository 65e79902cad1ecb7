package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"prolar/internal/apperrors"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func WriteError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}

func writeSuccess(w http.ResponseWriter, data interface{}, statusCode int) {
	writeJSON(w, data, statusCode)
}

func writeJSON(w http.ResponseWriter, body interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps the apperrors taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apperrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Validation failures carry the
// per-field messages; unexpected errors are logged and masked.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var fields apperrors.FieldErrors
	if errors.As(err, &fields) {
		writeJSON(w, ErrorResponse{Error: apperrors.ErrValidation.Error(), Fields: fields}, http.StatusBadRequest)
		return
	}

	switch status {
	case http.StatusInternalServerError:
		h.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		WriteError(w, "internal server error", status)
	case http.StatusServiceUnavailable:
		h.Log.Warn("backend unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		WriteError(w, "service temporarily unavailable, try again", status)
	default:
		WriteError(w, err.Error(), status)
	}
}
