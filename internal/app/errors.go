package app

import (
	"net/http"

	"taskboard/api/internal/apperr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvariant:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// mapError turns any error into a status and wire body. Errors without a
// kind are reported as a generic server error.
func mapError(err error) (int, errorBody) {
	if e, ok := apperr.As(err); ok {
		return statusFor(e.Kind), errorBody{Code: e.Code(), Message: e.Message, Details: e.Details}
	}
	return http.StatusInternalServerError, errorBody{Code: "SERVER_ERROR", Message: "Server error"}
}
