package httpadapter

import (
	"net/http"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTransport), domain.IsKind(err, domain.ErrResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
