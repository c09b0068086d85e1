package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gonum.org/v1/gonum/stat"
)

// cancelCheckEvery is how many trials run between context checks.
const cancelCheckEvery = 64

// MonteCarloSimulator samples future attendance trajectories.
type MonteCarloSimulator struct {
	settings analytics.MonteCarloSettings
}

func NewMonteCarloSimulator(settings analytics.MonteCarloSettings) *MonteCarloSimulator {
	return &MonteCarloSimulator{settings: settings}
}

// limits applies the hard caps to the configured trial and day counts.
func (s *MonteCarloSimulator) limits() (trials, days int) {
	trials = min(max(s.settings.Trials, 1), s.settings.MaxTrials)
	days = min(max(s.settings.Days, 1), s.settings.MaxDays)
	return trials, days
}

// dayProbabilities returns the Bernoulli parameter of each simulated
// future day and whether weekday specific rates were used.
func (s *MonteCarloSimulator) dayProbabilities(series analytics.DailySeries, days int) ([]float64, bool) {
	var scheduled, present [7]int
	var observed [7]int
	totalScheduled, totalPresent := 0, 0
	for _, d := range series.Days {
		if d.Scheduled == 0 {
			continue
		}
		wd := d.Date.Weekday()
		scheduled[wd] += d.Scheduled
		present[wd] += d.Present
		observed[wd]++
		totalScheduled += d.Scheduled
		totalPresent += d.Present
	}
	if totalScheduled == 0 {
		return nil, false
	}
	overall := float64(totalPresent) / float64(totalScheduled)

	byWeekday := len(series.Weekdays) > 0
	for _, wd := range series.Weekdays {
		if observed[wd] < s.settings.MinSamplesPerWeekday {
			byWeekday = false
			break
		}
	}

	var probs []float64
	for i := 1; i <= days; i++ {
		date := series.End.AddDate(0, 0, i)
		if !slices.Contains(series.Weekdays, date.Weekday()) {
			continue
		}
		p := overall
		if byWeekday {
			wd := date.Weekday()
			p = float64(present[wd]) / float64(scheduled[wd])
		}
		probs = append(probs, p)
	}
	return probs, byWeekday
}

// Simulate runs the configured number of trials. With a seed the result
// is reproducible; without one a random seed is drawn and reported.
func (s *MonteCarloSimulator) Simulate(ctx context.Context, series analytics.DailySeries, seed *uint64) (analytics.MonteCarloResult, error) {
	trials, days := s.limits()
	probs, byWeekday := s.dayProbabilities(series, days)
	if len(probs) == 0 {
		return analytics.MonteCarloResult{Availability: analytics.Unavailable("no scheduled days in the simulation horizon")}, nil
	}

	var seedValue uint64
	if seed != nil {
		seedValue = *seed
	} else {
		seedValue = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seedValue, seedValue^0x9e3779b97f4a7c15))

	averages := make([]float64, trials)
	for t := range trials {
		if t%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return analytics.MonteCarloResult{}, contextError(err)
			}
		}
		attended := 0
		for _, p := range probs {
			if rng.Float64() < p {
				attended++
			}
		}
		averages[t] = float64(attended) / float64(len(probs))
	}

	// Trial averages are attendance rates in [0,1].
	slices.Sort(averages)
	below := func(limit float64) float64 {
		idx, _ := slices.BinarySearch(averages, limit)
		return float64(idx) / float64(trials)
	}

	return analytics.MonteCarloResult{
		Availability: analytics.Computed,
		Simulations:  trials,
		Days:         len(probs),
		Seed:         seedValue,
		ByWeekday:    byWeekday,
		Scenarios: analytics.Scenarios{
			Best:     stat.Quantile(0.75, stat.Empirical, averages, nil),
			Expected: stat.Quantile(0.50, stat.Empirical, averages, nil),
			Worst:    stat.Quantile(0.25, stat.Empirical, averages, nil),
		},
		RiskAnalysis: analytics.RiskAnalysis{
			ProbabilityBelow60: below(0.6),
			ProbabilityBelow70: below(0.7),
			ProbabilityBelow80: below(0.8),
		},
	}, nil
}

// contextError maps a deadline to ErrAnalysisTimeout and keeps
// cancellation as is.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", analytics.ErrAnalysisTimeout, err)
	}
	return err
}

