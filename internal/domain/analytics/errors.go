package analytics

import "errors"

// Analytics domain errors
var (
	// Input errors
	ErrInvalidWindow   = errors.New("window_days must be between 1 and the configured maximum")
	ErrInvalidMode     = errors.New("mode must be individual or branch")
	ErrSubjectRequired = errors.New("subject id is required")

	// Series errors
	ErrInsufficientData = errors.New("not enough working days in the analysis window")
	// Reported as the reason of degenerate cycle and changepoint results
	ErrDegenerateSeries = errors.New("attendance series has zero variance")
	ErrDuplicateDate    = errors.New("attendance store returned a duplicate date")
	ErrSubjectNotFound  = errors.New("employee not found in company")

	// Branch errors
	ErrEmptyRoster = errors.New("branch has no active employees")

	// Compute errors
	ErrAnalysisTimeout = errors.New("analysis exceeded its compute budget")
)
