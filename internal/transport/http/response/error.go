package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// MsgServerError is the only message a 5xx response ever carries.
const MsgServerError = "Server error"

type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteError converts err into {success:false, message} with a status
// derived from the domain error kind. Non-domain errors are treated as
// internal. 5xx responses never expose the underlying message; the cause is
// logged with the request id instead.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := MsgServerError

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		code = de.Code
		if status < http.StatusInternalServerError {
			message = de.Message
		}
	}

	lg := logger.WithCtx(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error().Err(err).Str("code", code).Str("path", r.URL.Path).Msg("request_failed")
	} else {
		lg.Debug().Str("code", code).Str("path", r.URL.Path).Msg("request_rejected")
	}

	WriteJSON(w, status, ErrorBody{Success: false, Message: message})
}

// statusFromKind maps domain error kinds to HTTP status codes. Duplicate
// email and bad credentials are client errors (400) on this API.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation, domain.KindCredentials, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindInfrastructure, domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
