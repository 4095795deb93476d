package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/zettelnav/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error       string   `json:"error" validate:"required"`
	Kind        string   `json:"kind,omitempty" example:"missing_note"`
	Line        int      `json:"line,omitempty" example:"4"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidLink), errors.Is(err, apperr.ErrInvalidHeader):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrMissingNote), errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrOther):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its kind. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errResponse{Error: "internal error", Kind: apperr.Kind(err)})
		return
	}

	body := errResponse{Error: err.Error(), Kind: apperr.Kind(err)}
	var le *apperr.InvalidLinkError
	var he *apperr.InvalidHeaderError
	switch {
	case errors.As(err, &le):
		body.Line = le.Line
	case errors.As(err, &he):
		body.Line = he.Line
	}
	writeJSON(w, status, body)
}
