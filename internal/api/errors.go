package api

import (
	"errors"
	"net/http"

	"github.com/prismis/prismis/internal/apperr"
)

// writeError maps err's apperr.Kind to its HTTP status and renders the
// uniform envelope. Unrecognized errors fall back to 500.
func writeError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func statusForError(err error) (int, string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, err.Error()
	}
	switch ae.Kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity, ae.Message
	case apperr.KindNotFound:
		return http.StatusNotFound, ae.Message
	case apperr.KindAuth:
		return http.StatusForbidden, ae.Message
	case apperr.KindFetch:
		return http.StatusBadRequest, ae.Message
	case apperr.KindQuota, apperr.KindTransient:
		return http.StatusServiceUnavailable, ae.Message
	case apperr.KindStorage:
		return http.StatusInternalServerError, ae.Message
	default:
		return http.StatusInternalServerError, ae.Message
	}
}
