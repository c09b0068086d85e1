package analytics

import (
	"math"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
)

// MarkovModeler fits a two-state present/absent chain.
type MarkovModeler struct {
	settings analytics.MarkovSettings
}

func NewMarkovModeler(settings analytics.MarkovSettings) *MarkovModeler {
	return &MarkovModeler{settings: settings}
}

// BinarySequence returns the present/absent states of the scheduled days
// of an individual series.
func BinarySequence(series analytics.DailySeries) []int {
	days := series.ScheduledDays()
	out := make([]int, len(days))
	for i, d := range days {
		if d.Present > 0 {
			out[i] = analytics.StatePresent
		} else {
			out[i] = analytics.StateAbsent
		}
	}
	return out
}

// Fit counts transitions across all sequences (pooled), smooths them with
// add-one counts and solves the stationary distribution.
func (m *MarkovModeler) Fit(sequences ...[]int) analytics.MarkovModel {
	var counts [2][2]int
	transitions := 0
	for _, seq := range sequences {
		for i := 1; i < len(seq); i++ {
			counts[seq[i-1]][seq[i]]++
			transitions++
		}
	}
	if transitions == 0 {
		return analytics.MarkovModel{Availability: analytics.Unavailable("no consecutive scheduled days to learn transitions from")}
	}

	var matrix analytics.TransitionMatrix
	for from := range 2 {
		rowTotal := float64(counts[from][0] + counts[from][1] + 2)
		for to := range 2 {
			matrix[from][to] = float64(counts[from][to]+1) / rowTotal
		}
	}

	stationary, iterations, converged := m.stationary(matrix)

	return analytics.MarkovModel{
		Availability:       analytics.Computed,
		Counts:             counts,
		Transition:         matrix,
		Stationary:         stationary,
		Iterations:         iterations,
		Converged:          converged,
		ExpectedPresentRun: 1 / (1 - matrix[analytics.StatePresent][analytics.StatePresent]),
		ExpectedAbsentRun:  1 / (1 - matrix[analytics.StateAbsent][analytics.StateAbsent]),
		PredictedRate:      stationary[analytics.StatePresent] * 100,
	}
}

// stationary runs power iteration from the uniform vector until the L1
// change drops below the tolerance or the iteration cap is hit.
func (m *MarkovModeler) stationary(p analytics.TransitionMatrix) (analytics.StationaryDistribution, int, bool) {
	pi := analytics.StationaryDistribution{0.5, 0.5}
	for i := 1; i <= m.settings.MaxIterations; i++ {
		var next analytics.StationaryDistribution
		for to := range 2 {
			next[to] = pi[0]*p[0][to] + pi[1]*p[1][to]
		}
		sum := next[0] + next[1]
		next[0] /= sum
		next[1] /= sum

		change := math.Abs(next[0]-pi[0]) + math.Abs(next[1]-pi[1])
		pi = next
		if change < m.settings.Tolerance {
			return pi, i, true
		}
	}
	return pi, m.settings.MaxIterations, false
}
