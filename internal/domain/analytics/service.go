package analytics

import "context"

// AnalyticsService runs the predictive attendance pipeline
type AnalyticsService interface {
	// Analyze builds a report for an employee or a branch. Business edge
	// cases are reported inside the report; only invalid input, timeouts
	// and store failures are returned as errors.
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisReport, error)

	// Settings returns the tuning configuration in use
	Settings() Settings
}
