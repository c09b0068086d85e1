package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/metrics"
)

// AnalyticsJobs publishes nightly branch risk gauges
type AnalyticsJobs struct {
	roster           analytics.RosterReader
	analyticsService analytics.AnalyticsService
}

func NewAnalyticsJobs(roster analytics.RosterReader, analyticsService analytics.AnalyticsService) *AnalyticsJobs {
	return &AnalyticsJobs{
		roster:           roster,
		analyticsService: analyticsService,
	}
}

func (j *AnalyticsJobs) RegisterJobs(scheduler *Scheduler, spec string) error {
	return scheduler.AddJob("branch_risk_sweep", spec, j.SweepBranches)
}

// SweepBranches analyzes every branch with default settings. A failing
// branch is logged and the sweep moves on.
func (j *AnalyticsJobs) SweepBranches(ctx context.Context) error {
	start := time.Now()
	slog.Info("Cron: Starting branch risk sweep")

	branches, err := j.roster.ListBranches(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to list branches: %w", err)
	}

	published, failed := 0, 0
	for _, branch := range branches {
		if err := ctx.Err(); err != nil {
			metrics.SweepRuns.WithLabelValues("canceled").Inc()
			return err
		}

		report, err := j.analyticsService.Analyze(ctx, analytics.AnalyzeRequest{
			CompanyID: branch.CompanyID,
			SubjectID: branch.ID,
			Mode:      analytics.ModeBranch,
		})
		if err != nil {
			failed++
			slog.Warn("Cron: branch sweep failed", "company_id", branch.CompanyID, "branch_id", branch.ID, "error", err)
			continue
		}
		if !report.KPIs.Available || !report.Risk.Available {
			continue
		}

		metrics.SetBranchGauges(branch.CompanyID, branch.ID, report.Risk.RiskScore, report.KPIs.AttendanceRate)
		published++
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.SweepRuns.WithLabelValues(outcome).Inc()

	slog.Info("Cron: Branch risk sweep finished",
		"branches", len(branches),
		"published", published,
		"failed", failed,
		"duration", time.Since(start),
	)
	return nil
}
