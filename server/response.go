package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

type errorResponse struct {
	Error   string      `json:"error"`
	Details string      `json:"details,omitempty"`
	Code    errors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError is the single place errors become HTTP responses. Untyped
// errors are reported generically and the original error is never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Normalize(err)
	status := errors.HTTPStatus(appErr)

	body := errorResponse{Error: appErr.Message, Details: appErr.Details, Code: appErr.Code}
	if appErr.Code == errors.CodeUnknownError {
		body = errorResponse{Error: "An unexpected error occurred", Details: appErr.Message}
	}

	event := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.Err(err).Str("code", string(appErr.Code)).Int("status", status).Msg("request failed")

	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Validation("Invalid request body", err.Error())
	}
	return nil
}
