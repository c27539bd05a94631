package api

import (
	"errors"
	"net/http"

	"trackerql/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Compile errors and everything else are server errors.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
