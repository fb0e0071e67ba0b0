package server

import (
	"encoding/json"
	"net/http"

	errs "github.com/matzehuels/storyline/pkg/errors"
	"github.com/matzehuels/storyline/pkg/observability"
)

// respondJSON writes data as a JSON response. Text is not HTML-escaped so
// dialogue reaches clients exactly as authored.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps err to a status code and writes it as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	}
	respondJSON(w, status, errorResponse{
		Error:   true,
		Code:    string(code),
		Message: errs.UserMessage(err),
	})
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeNotFound, errs.ErrCodeNodeNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidVars, errs.ErrCodeInvalidConditions,
		errs.ErrCodeInvalidNodeID, errs.ErrCodeInvalidPath, errs.ErrCodeInvalidFormat,
		errs.ErrCodeInvalidScript:
		return http.StatusBadRequest
	case errs.ErrCodeUnknownSpeaker:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeDuplicateID:
		return http.StatusConflict
	case errs.ErrCodeExportFailed, errs.ErrCodeNetwork:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
