package analytics

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// BranchAggregator runs the per-employee pipeline over a branch roster.
type BranchAggregator struct {
	roster   analytics.RosterReader
	series   *SeriesBuilder
	pipeline *Pipeline
	settings analytics.BranchSettings
}

func NewBranchAggregator(roster analytics.RosterReader, series *SeriesBuilder, pipeline *Pipeline, settings analytics.BranchSettings) *BranchAggregator {
	return &BranchAggregator{
		roster:   roster,
		series:   series,
		pipeline: pipeline,
		settings: settings,
	}
}

// BranchResult carries the summary plus what the branch level pipeline
// needs: the merged series and the pooled Markov sequences.
type BranchResult struct {
	Summary   analytics.BranchSummary
	Series    analytics.DailySeries
	Sequences [][]int
}

type employeeOutcome struct {
	summary  analytics.EmployeeSummary
	series   analytics.DailySeries
	skipped  string
	analyzed bool
}

// Aggregate analyzes every active employee of the branch. Per-employee
// failures are recorded as skipped; only cancellation, timeouts and a
// failed roster read abort the aggregation.
func (a *BranchAggregator) Aggregate(ctx context.Context, companyID, branchID string, window int, now time.Time, seed *uint64) (BranchResult, error) {
	employees, err := a.roster.ListActiveEmployees(ctx, companyID, branchID)
	if err != nil {
		return BranchResult{}, fmt.Errorf("failed to list active employees: %w", err)
	}
	if len(employees) == 0 {
		return BranchResult{}, analytics.ErrEmptyRoster
	}

	outcomes := make([]employeeOutcome, len(employees))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.settings.Workers)

	for i, emp := range employees {
		if a.settings.MaxEmployeesPerAnalysis > 0 && i >= a.settings.MaxEmployeesPerAnalysis {
			outcomes[i].skipped = fmt.Sprintf("roster exceeds %d employees", a.settings.MaxEmployeesPerAnalysis)
			continue
		}
		g.Go(func() error {
			outcome, err := a.analyzeEmployee(gCtx, companyID, emp, window, now, seed)
			if err != nil {
				if !isSkippable(err) {
					return contextError(err)
				}
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return contextError(ctxErr)
				}
				slog.Warn("employee skipped in branch analysis", "branch_id", branchID, "employee_id", emp.ID, "error", err)
				outcome = employeeOutcome{skipped: err.Error()}
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BranchResult{}, err
	}

	return a.summarize(branchID, employees, outcomes)
}

func (a *BranchAggregator) analyzeEmployee(ctx context.Context, companyID string, emp analytics.EmployeeRef, window int, now time.Time, seed *uint64) (employeeOutcome, error) {
	series, err := a.series.Build(ctx, companyID, emp.ID, window, now)
	if err != nil {
		return employeeOutcome{}, err
	}

	sections, err := a.pipeline.Run(ctx, series, deriveSeed(seed, emp.ID))
	if err != nil {
		return employeeOutcome{}, err
	}

	return employeeOutcome{
		analyzed: true,
		series:   series,
		summary: analytics.EmployeeSummary{
			EmployeeID:       emp.ID,
			FullName:         emp.FullName,
			AttendanceRate:   sections.KPIs.AttendanceRate,
			PunctualityRate:  sections.KPIs.PunctualityRate,
			ConsistencyScore: sections.KPIs.ConsistencyScore,
			Grade:            sections.KPIs.Grade,
			RiskScore:        sections.Risk.RiskScore,
			RiskLevel:        sections.Risk.RiskLevel,
		},
	}, nil
}

func (a *BranchAggregator) summarize(branchID string, employees []analytics.EmployeeRef, outcomes []employeeOutcome) (BranchResult, error) {
	summary := analytics.BranchSummary{
		RosterSize:     len(employees),
		TopPerformers:  []analytics.EmployeeSummary{},
		NeedsAttention: []analytics.EmployeeSummary{},
		Skipped:        []analytics.SkippedEmployee{},
	}

	var analyzed []analytics.EmployeeSummary
	var series []analytics.DailySeries
	var sequences [][]int
	totalRate := 0.0

	for i, o := range outcomes {
		if !o.analyzed {
			summary.Skipped = append(summary.Skipped, analytics.SkippedEmployee{
				EmployeeID: employees[i].ID,
				FullName:   employees[i].FullName,
				Reason:     o.skipped,
			})
			continue
		}
		analyzed = append(analyzed, o.summary)
		series = append(series, o.series)
		sequences = append(sequences, BinarySequence(o.series))
		totalRate += o.summary.AttendanceRate
		a.bucket(&summary.Distribution, o.summary.AttendanceRate)
	}
	metrics.SkippedEmployees.Add(float64(len(summary.Skipped)))

	summary.Analyzed = len(analyzed)
	if len(analyzed) == 0 {
		return BranchResult{Summary: summary}, fmt.Errorf("%w: no employee of branch %s could be analyzed", analytics.ErrInsufficientData, branchID)
	}
	summary.AverageAttendanceRate = round2(totalRate / float64(len(analyzed)))
	summary.TopPerformers = a.topPerformers(analyzed)
	summary.NeedsAttention = a.needsAttention(analyzed)

	merged, err := Merge(branchID, series...)
	if err != nil {
		return BranchResult{}, err
	}

	return BranchResult{
		Summary:   summary,
		Series:    merged,
		Sequences: sequences,
	}, nil
}

// bucket places an attendance rate in the performance histogram.
func (a *BranchAggregator) bucket(d *analytics.PerformanceDistribution, rate float64) {
	switch {
	case rate >= a.settings.DistributionExcellent:
		d.Excellent++
	case rate >= a.settings.DistributionGood:
		d.Good++
	case rate >= a.settings.DistributionAverage:
		d.Average++
	default:
		d.Poor++
	}
}

// topPerformers ranks by attendance, then consistency, descending.
func (a *BranchAggregator) topPerformers(employees []analytics.EmployeeSummary) []analytics.EmployeeSummary {
	ranked := append([]analytics.EmployeeSummary(nil), employees...)
	sort.SliceStable(ranked, func(i, j int) bool {
		x, y := ranked[i], ranked[j]
		if x.AttendanceRate != y.AttendanceRate {
			return x.AttendanceRate > y.AttendanceRate
		}
		if x.ConsistencyScore != y.ConsistencyScore {
			return x.ConsistencyScore > y.ConsistencyScore
		}
		return x.EmployeeID < y.EmployeeID
	})
	return a.cap(ranked)
}

// needsAttention lists employees below the attendance bar or at high risk,
// worst first.
func (a *BranchAggregator) needsAttention(employees []analytics.EmployeeSummary) []analytics.EmployeeSummary {
	var flagged []analytics.EmployeeSummary
	for _, e := range employees {
		if e.AttendanceRate < a.settings.NeedsAttentionBelow || e.RiskLevel == RiskHigh || e.RiskLevel == RiskCritical {
			flagged = append(flagged, e)
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		x, y := flagged[i], flagged[j]
		if x.AttendanceRate != y.AttendanceRate {
			return x.AttendanceRate < y.AttendanceRate
		}
		if x.ConsistencyScore != y.ConsistencyScore {
			return x.ConsistencyScore < y.ConsistencyScore
		}
		return x.EmployeeID < y.EmployeeID
	})
	return a.cap(flagged)
}

func (a *BranchAggregator) cap(list []analytics.EmployeeSummary) []analytics.EmployeeSummary {
	if len(list) > a.settings.RankingSize {
		list = list[:a.settings.RankingSize]
	}
	if list == nil {
		return []analytics.EmployeeSummary{}
	}
	return list
}

// deriveSeed gives every employee its own reproducible stream from the
// request seed. Without a request seed each run is random.
func deriveSeed(seed *uint64, employeeID string) *uint64 {
	if seed == nil {
		return nil
	}
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], *seed)
	h.Write(buf[:])
	h.Write([]byte(employeeID))
	derived := h.Sum64()
	return &derived
}

// isSkippable reports whether an error only excludes one employee.
func isSkippable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, analytics.ErrAnalysisTimeout)
}
