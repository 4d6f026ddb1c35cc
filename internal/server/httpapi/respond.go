package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusForError maps service sentinels onto HTTP status codes. Missing
// fields map to 404 and malformed values to 400, following the API's
// established convention.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrorMissingField):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrCodeMismatch),
		errors.Is(err, common.ErrCodeAlreadyUsed):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrSignatureInvalid):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondWithMappedError translates a service error into a JSON error
// response. Internal failures are logged but never echo their details to
// the client.
func (s *HTTPServer) respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "internal error", "error", err.Error(), "path", r.URL.Path)
		respondWithError(w, status, "internal error")
		return
	}
	respondWithError(w, status, err.Error())
}
