package httpadapter

import (
	"net/http"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessageForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Field 'text' is required"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadGateway:
		return "LLM call failed"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal error"
	}
}
