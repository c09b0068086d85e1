package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AnalyticsHandler interface {
	// AnalyzeEmployee handles GET /analytics/employees/{employeeID}
	AnalyzeEmployee(w http.ResponseWriter, r *http.Request)
	// AnalyzeBranch handles GET /analytics/branches/{branchID}
	AnalyzeBranch(w http.ResponseWriter, r *http.Request)
	// GetSettings handles GET /analytics/settings
	GetSettings(w http.ResponseWriter, r *http.Request)
}

type analyticsHandlerImpl struct {
	analyticsService analytics.AnalyticsService
}

func NewAnalyticsHandler(analyticsService analytics.AnalyticsService) AnalyticsHandler {
	return &analyticsHandlerImpl{analyticsService: analyticsService}
}

func (h *analyticsHandlerImpl) AnalyzeEmployee(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, analytics.ModeIndividual, chi.URLParam(r, "employeeID"))
}

func (h *analyticsHandlerImpl) AnalyzeBranch(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, analytics.ModeBranch, chi.URLParam(r, "branchID"))
}

func (h *analyticsHandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	response.Success(w, analytics.NewSettingsResponse(h.analyticsService.Settings()))
}

func (h *analyticsHandlerImpl) analyze(w http.ResponseWriter, r *http.Request, mode, subjectID string) {
	if validator.IsEmpty(subjectID) {
		response.HandleError(w, analytics.ErrSubjectRequired)
		return
	}

	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, jwt.ErrInvalidToken)
		return
	}

	req, err := parseAnalyzeQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.CompanyID = claims.CompanyID
	req.SubjectID = subjectID
	req.Mode = mode

	start := time.Now()
	report, err := h.analyticsService.Analyze(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, report, &response.Meta{
		SettingsVersion: report.SettingsVersion,
		ElapsedMS:       time.Since(start).Milliseconds(),
	})
}

// parseAnalyzeQuery reads window_days, now (YYYY-MM-DD) and seed
func parseAnalyzeQuery(r *http.Request) (analytics.AnalyzeRequest, error) {
	var (
		req  analytics.AnalyzeRequest
		errs validator.ValidationErrors
	)
	query := r.URL.Query()

	if window := query.Get("window_days"); window != "" {
		days, ok := validator.ParseInteger(window)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "window_days",
				Message: "window_days must be a whole number",
			})
		} else {
			req.WindowDays = &days
		}
	}

	if now := query.Get("now"); now != "" {
		reference, ok := validator.IsValidDate(now)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "now",
				Message: "now must be in YYYY-MM-DD format",
			})
		}
		req.Reference = reference
	}

	if seed := query.Get("seed"); seed != "" {
		value, err := strconv.ParseUint(seed, 10, 64)
		if !validator.IsNumeric(seed) || err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "seed",
				Message: "seed must be an unsigned integer",
			})
		} else {
			req.Seed = &value
		}
	}

	if len(errs) > 0 {
		return req, errs
	}
	return req, nil
}
