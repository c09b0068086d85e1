package analytics

import (
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/pkg/validator"
)

// ========================================
// ANALYTICS DTOs
// ========================================

type AnalyzeRequest struct {
	CompanyID  string    `json:"-"` // From JWT
	SubjectID  string    `json:"subject_id"`
	Mode       string    `json:"mode"`
	WindowDays *int      `json:"window_days,omitempty"` // nil selects the mode default
	Reference  time.Time `json:"reference_date"`
	Seed       *uint64   `json:"seed,omitempty"`
}

func (r *AnalyzeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "company_id",
			Message: "company_id is required",
		})
	}

	if validator.IsEmpty(r.SubjectID) {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_id",
			Message: "subject_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// SettingsResponse exposes the active tuning version and the main knobs
type SettingsResponse struct {
	Version          string `json:"version"`
	IndividualWindow int    `json:"individual_window_days"`
	BranchWindow     int    `json:"branch_window_days"`
	MaxWindow        int    `json:"max_window_days"`
	MinWorkingDays   int    `json:"min_working_days"`
	ForecastHorizon  int    `json:"forecast_horizon"`
	MonteCarloTrials int    `json:"monte_carlo_trials"`
	MonteCarloDays   int    `json:"monte_carlo_days"`
}

func NewSettingsResponse(s Settings) SettingsResponse {
	return SettingsResponse{
		Version:          s.Version,
		IndividualWindow: s.IndividualWindow,
		BranchWindow:     s.BranchWindow,
		MaxWindow:        s.MaxWindow,
		MinWorkingDays:   s.MinWorkingDays,
		ForecastHorizon:  s.Forecast.Horizon,
		MonteCarloTrials: s.MonteCarlo.Trials,
		MonteCarloDays:   s.MonteCarlo.Days,
	}
}
