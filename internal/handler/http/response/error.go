package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid token")
	case errors.Is(err, jwt.ErrCompanyIDRequired):
		Forbidden(w, "Company membership required")
	case errors.Is(err, jwt.ErrAnalyticsForbidden):
		Forbidden(w, err.Error())

	// Analytics domain errors
	case errors.Is(err, analytics.ErrInvalidWindow),
		errors.Is(err, analytics.ErrInvalidMode),
		errors.Is(err, analytics.ErrSubjectRequired):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, analytics.ErrSubjectNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, analytics.ErrEmptyRoster):
		NotFound(w, "Branch has no active employees")
	case errors.Is(err, analytics.ErrAnalysisTimeout):
		GatewayTimeout(w, "Analysis took too long, try a shorter window")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
