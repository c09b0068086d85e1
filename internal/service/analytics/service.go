package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/validator"
	"github.com/google/uuid"
)

// Analysis outcomes as recorded in metrics.
const (
	outcomeOK               = "ok"
	outcomeInsufficientData = "insufficient_data"
	outcomeTimeout          = "timeout"
	outcomeError            = "error"
)

type AnalyticsServiceImpl struct {
	settings analytics.Settings
	series   *SeriesBuilder
	pipeline *Pipeline
	branches *BranchAggregator
	now      func() time.Time
}

func NewAnalyticsService(
	attendance analytics.AttendanceReader,
	schedules analytics.ScheduleReader,
	roster analytics.RosterReader,
	settings analytics.Settings,
) analytics.AnalyticsService {
	series := NewSeriesBuilder(attendance, schedules, settings)
	pipeline := NewPipeline(settings)
	return &AnalyticsServiceImpl{
		settings: settings,
		series:   series,
		pipeline: pipeline,
		branches: NewBranchAggregator(roster, series, pipeline, settings.Branch),
		now:      time.Now,
	}
}

func (s *AnalyticsServiceImpl) Settings() analytics.Settings {
	return s.settings
}

// resolveWindow applies the mode default and the configured maximum.
// An explicit window must be positive.
func (s *AnalyticsServiceImpl) resolveWindow(mode string, requested *int) (int, error) {
	if requested == nil {
		if mode == analytics.ModeBranch {
			return s.settings.BranchWindow, nil
		}
		return s.settings.IndividualWindow, nil
	}
	window := *requested
	if window <= 0 || window > s.settings.MaxWindow {
		return 0, fmt.Errorf("%w: got %d, must be between 1 and %d", analytics.ErrInvalidWindow, window, s.settings.MaxWindow)
	}
	return window, nil
}

// Analyze runs the pipeline for an employee or a branch under the request
// timeout.
func (s *AnalyticsServiceImpl) Analyze(ctx context.Context, req analytics.AnalyzeRequest) (analytics.AnalysisReport, error) {
	if err := req.Validate(); err != nil {
		return analytics.AnalysisReport{}, err
	}
	if !validator.IsInSlice(req.Mode, []string{analytics.ModeIndividual, analytics.ModeBranch}) {
		return analytics.AnalysisReport{}, fmt.Errorf("%w: %q", analytics.ErrInvalidMode, req.Mode)
	}
	window, err := s.resolveWindow(req.Mode, req.WindowDays)
	if err != nil {
		return analytics.AnalysisReport{}, err
	}

	reference := req.Reference
	if reference.IsZero() {
		reference = s.now()
	}
	reference = truncateDay(reference)

	ctx, cancel := context.WithTimeout(ctx, s.settings.RequestTimeout)
	defer cancel()

	started := time.Now()
	report := analytics.AnalysisReport{
		SubjectID:       req.SubjectID,
		Mode:            req.Mode,
		WindowDays:      window,
		Reference:       dateKey(reference),
		SettingsVersion: s.settings.Version,
	}

	if req.Mode == analytics.ModeBranch {
		err = s.analyzeBranch(ctx, req, window, reference, &report)
	} else {
		err = s.analyzeEmployee(ctx, req, window, reference, &report)
	}

	elapsed := time.Since(started)
	if err != nil {
		err = contextError(err)
		outcome := outcomeError
		if errors.Is(err, analytics.ErrAnalysisTimeout) {
			outcome = outcomeTimeout
		}
		metrics.ObserveAnalysis(req.Mode, outcome, elapsed)
		slog.Error("analysis failed",
			"subject_id", req.SubjectID,
			"mode", req.Mode,
			"window_days", window,
			"duration", elapsed,
			"error", err)
		return analytics.AnalysisReport{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return analytics.AnalysisReport{}, fmt.Errorf("failed to generate report id: %w", err)
	}
	report.ID = id.String()
	report.GeneratedAt = s.now().UTC()

	outcome := outcomeOK
	if report.Status == analytics.StatusInsufficientData {
		outcome = outcomeInsufficientData
	}
	metrics.ObserveAnalysis(req.Mode, outcome, elapsed)
	slog.Info("analysis finished",
		"report_id", report.ID,
		"subject_id", req.SubjectID,
		"mode", req.Mode,
		"window_days", window,
		"status", report.Status,
		"duration", elapsed)

	return report, nil
}

func (s *AnalyticsServiceImpl) analyzeEmployee(ctx context.Context, req analytics.AnalyzeRequest, window int, reference time.Time, report *analytics.AnalysisReport) error {
	series, err := s.series.Build(ctx, req.CompanyID, req.SubjectID, window, reference)
	if errors.Is(err, analytics.ErrInsufficientData) {
		fillInsufficient(report, err)
		return nil
	}
	if err != nil {
		return err
	}

	sections, err := s.pipeline.Run(ctx, series, req.Seed)
	if err != nil {
		return err
	}
	fill(report, sections)
	return nil
}

func (s *AnalyticsServiceImpl) analyzeBranch(ctx context.Context, req analytics.AnalyzeRequest, window int, reference time.Time, report *analytics.AnalysisReport) error {
	result, err := s.branches.Aggregate(ctx, req.CompanyID, req.SubjectID, window, reference, req.Seed)
	if errors.Is(err, analytics.ErrInsufficientData) {
		fillInsufficient(report, err)
		report.Branch = &result.Summary
		return nil
	}
	if err != nil {
		return err
	}

	sections, err := s.pipeline.Run(ctx, result.Series, req.Seed, result.Sequences...)
	if err != nil {
		return err
	}
	fill(report, sections)
	report.Branch = &result.Summary

	slog.Info("branch aggregated",
		"branch_id", req.SubjectID,
		"roster_size", result.Summary.RosterSize,
		"analyzed", result.Summary.Analyzed,
		"skipped", len(result.Summary.Skipped))
	return nil
}

func fill(report *analytics.AnalysisReport, sections Sections) {
	report.Status = analytics.StatusOK
	report.KPIs = sections.KPIs
	report.Decomposition = sections.Decomposition
	report.Forecast = sections.Forecast
	report.Cycles = sections.Cycles
	report.Changepoints = sections.Changepoints
	report.Markov = sections.Markov
	report.MonteCarlo = sections.MonteCarlo
	report.Risk = sections.Risk
}

func fillInsufficient(report *analytics.AnalysisReport, err error) {
	fill(report, UnavailableSections(err.Error()))
	report.Status = analytics.StatusInsufficientData
}
