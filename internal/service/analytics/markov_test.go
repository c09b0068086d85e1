package analytics

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidChain(t *testing.T, model analytics.MarkovModel) {
	t.Helper()
	for from := range 2 {
		assert.InDelta(t, 1.0, model.Transition[from][0]+model.Transition[from][1], 1e-9)
	}
	pi := model.Stationary
	assert.InDelta(t, 1.0, pi[0]+pi[1], 1e-9)
	for to := range 2 {
		next := pi[0]*model.Transition[0][to] + pi[1]*model.Transition[1][to]
		assert.InDelta(t, pi[to], next, 1e-4)
	}
}

// ===== MARKOV MODELER TESTS =====

func TestMarkovModeler_Fit_PerfectAttendance(t *testing.T) {
	// Arrange
	series := alignedSeries(perfectRows(refDate, 90), allWeek, refDate, 90)
	modeler := NewMarkovModeler(analytics.DefaultSettings().Markov)

	// Act
	model := modeler.Fit(BinarySequence(series))

	// Assert
	require.True(t, model.Available)
	pp := model.Transition[analytics.StatePresent][analytics.StatePresent]
	assert.Greater(t, pp, 0.95)
	assert.Less(t, pp, 1.0)
	assert.Equal(t, 89, model.Counts[analytics.StatePresent][analytics.StatePresent])
	assert.True(t, model.Converged)
	assert.Greater(t, model.PredictedRate, 95.0)
	assertValidChain(t, model)
}

func TestMarkovModeler_Fit_RandomSeries(t *testing.T) {
	modeler := NewMarkovModeler(analytics.DefaultSettings().Markov)

	for _, seed := range []uint64{1, 2, 3, 4, 5} {
		series := alignedSeries(randomRows(refDate, 90, 0.75, seed), workWeek, refDate, 90)

		model := modeler.Fit(BinarySequence(series))

		require.True(t, model.Available)
		assertValidChain(t, model)
		assert.InDelta(t, 1/(1-model.Transition[0][0]), model.ExpectedPresentRun, 1e-9)
		assert.InDelta(t, 1/(1-model.Transition[1][1]), model.ExpectedAbsentRun, 1e-9)
	}
}

func TestMarkovModeler_Fit_PooledSequences(t *testing.T) {
	modeler := NewMarkovModeler(analytics.DefaultSettings().Markov)

	model := modeler.Fit([]int{analytics.StatePresent, analytics.StateAbsent}, []int{analytics.StateAbsent, analytics.StatePresent})

	// no transition is counted across the sequence boundary
	assert.Equal(t, [2][2]int{{0, 1}, {1, 0}}, model.Counts)
	assert.InDelta(t, 1.0/3, model.Transition[0][0], 1e-12)
	assert.InDelta(t, 0.5, model.Stationary[0], 1e-6)
}

func TestMarkovModeler_Fit_NoTransitions(t *testing.T) {
	modeler := NewMarkovModeler(analytics.DefaultSettings().Markov)

	model := modeler.Fit([]int{analytics.StatePresent})

	assert.False(t, model.Available)
	assert.NotEmpty(t, model.Reason)
}

func TestBinarySequence_SkipsUnscheduledDays(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // Monday
	rows := []analytics.AttendanceDay{presentDay(start), absentDay(start.AddDate(0, 0, 1))}
	series, err := Align("emp-1", rows, workWeek, start, 7)
	require.NoError(t, err)

	seq := BinarySequence(series)

	assert.Equal(t, []int{
		analytics.StatePresent,
		analytics.StateAbsent,
		analytics.StateAbsent,
		analytics.StateAbsent,
		analytics.StateAbsent,
	}, seq)
}
