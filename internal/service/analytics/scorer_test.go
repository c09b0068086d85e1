package analytics

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer() *Scorer {
	return NewScorer(analytics.DefaultSettings().Scoring)
}

// ===== KPI TESTS =====

func TestScorer_KPIs_PerfectAttendance(t *testing.T) {
	series := alignedSeries(perfectRows(refDate, 90), allWeek, refDate, 90)

	kpis := newTestScorer().KPIs(series)

	require.True(t, kpis.Available)
	assert.Equal(t, 100.0, kpis.AttendanceRate)
	assert.Equal(t, 100.0, kpis.PunctualityRate)
	assert.Equal(t, 100.0, kpis.ConsistencyScore)
	assert.Equal(t, 100.0, kpis.OverallPerformanceIndex)
	assert.Equal(t, GradeExcellent, kpis.Grade)
	assert.Equal(t, TrendStable, kpis.TrendLabel)
	assert.Equal(t, 90, kpis.ScheduledDays)
	assert.Equal(t, 90, kpis.PresentDays)
	assert.Equal(t, 90, kpis.OnTimeDays)
}

func TestScorer_KPIs_Rates(t *testing.T) {
	// 3 of 4 weekdays present, every other present day late
	rows := buildRows(refDate, 28, func(i int, date time.Time) analytics.AttendanceDay {
		if i%4 == 3 {
			return absentDay(date)
		}
		day := presentDay(date)
		if i%2 == 0 {
			day.LateMinutes = 15
		}
		return day
	})
	series := alignedSeries(rows, allWeek, refDate, 28)

	kpis := newTestScorer().KPIs(series)

	assert.Equal(t, 75.0, kpis.AttendanceRate)
	// present days: i%4 in {0,1,2}; late when i is even, so 14 of 21 late
	assert.Equal(t, 33.33, kpis.PunctualityRate)
	assert.Equal(t, 21, kpis.PresentDays)
	assert.Equal(t, 7, kpis.OnTimeDays)
}

func TestScorer_KPIs_NoPresentDays(t *testing.T) {
	series := alignedSeries(nil, allWeek, refDate, 30)

	kpis := newTestScorer().KPIs(series)

	assert.Equal(t, 0.0, kpis.AttendanceRate)
	assert.Equal(t, 0.0, kpis.PunctualityRate)
	assert.Equal(t, 0.0, kpis.ConsistencyScore)
	assert.Equal(t, GradeNeedsImprovement, kpis.Grade)
}

func TestScorer_KPIs_Consistency(t *testing.T) {
	rows := buildRows(refDate, 20, func(i int, date time.Time) analytics.AttendanceDay {
		day := presentDay(date)
		if i%2 == 1 {
			day.CheckInMinute = intPtr(540)
		}
		return day
	})
	series := alignedSeries(rows, allWeek, refDate, 20)

	kpis := newTestScorer().KPIs(series)

	// sample variance of ten 480s and ten 540s
	variance := 900.0 * 20 / 19
	assert.InDelta(t, 100/(1+variance/900), kpis.ConsistencyScore, 0.01)
}

func TestScorer_KPIs_Trend(t *testing.T) {
	declining := buildRows(refDate, 40, func(i int, date time.Time) analytics.AttendanceDay {
		if i < 20 {
			return presentDay(date)
		}
		return absentDay(date)
	})
	improving := buildRows(refDate, 40, func(i int, date time.Time) analytics.AttendanceDay {
		if i < 20 {
			return absentDay(date)
		}
		return presentDay(date)
	})
	scorer := newTestScorer()

	assert.Equal(t, TrendDeclining, scorer.KPIs(alignedSeries(declining, allWeek, refDate, 40)).TrendLabel)
	assert.Equal(t, TrendImproving, scorer.KPIs(alignedSeries(improving, allWeek, refDate, 40)).TrendLabel)
}

func TestScorer_Grade(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		index float64
		want  string
	}{
		{100, GradeExcellent},
		{95, GradeExcellent},
		{94.99, GradeGood},
		{85, GradeGood},
		{70, GradeAverage},
		{60, GradeBelowAverage},
		{59.9, GradeNeedsImprovement},
		{0, GradeNeedsImprovement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scorer.Grade(tt.index), "index %.2f", tt.index)
	}
}

// ===== RISK TESTS =====

func TestScorer_RiskLevel(t *testing.T) {
	scorer := newTestScorer()

	assert.Equal(t, RiskLow, scorer.RiskLevel(0))
	assert.Equal(t, RiskLow, scorer.RiskLevel(24.99))
	assert.Equal(t, RiskMedium, scorer.RiskLevel(25))
	assert.Equal(t, RiskHigh, scorer.RiskLevel(50))
	assert.Equal(t, RiskCritical, scorer.RiskLevel(75))
	assert.Equal(t, RiskCritical, scorer.RiskLevel(100))
}

func TestScorer_Risk_AllAbsent(t *testing.T) {
	scorer := newTestScorer()
	series := alignedSeries(nil, allWeek, refDate, 30)
	kpis := scorer.KPIs(series)

	// Markov and Monte Carlo fall back to the window deficit
	risk := scorer.Risk(RiskInputs{
		Series:       series,
		KPIs:         kpis,
		Markov:       analytics.MarkovModel{Availability: analytics.Unavailable("n/a")},
		MonteCarlo:   analytics.MonteCarloResult{Availability: analytics.Unavailable("n/a")},
		Changepoints: analytics.ChangepointSet{Availability: analytics.Unavailable("n/a")},
	})

	require.True(t, risk.Available)
	assert.Equal(t, 85.0, risk.RiskScore)
	assert.Equal(t, RiskCritical, risk.RiskLevel)
	assert.Contains(t, risk.RiskFactors, FactorLowRecentAttendance)
	assert.Contains(t, risk.RiskFactors, FactorLowAttendanceRate)
	// no present days, so no lateness advice
	assert.NotContains(t, risk.RiskFactors, FactorFrequentLateness)
	assert.NotContains(t, risk.RiskFactors, FactorInconsistentCheckIn)
	for _, rec := range risk.Recommendations {
		assert.Equal(t, analytics.PriorityHigh, rec.Priority)
		assert.NotContains(t, rec.Message, "Punctuality")
	}
}

func TestScorer_Risk_PerfectAttendance(t *testing.T) {
	scorer := newTestScorer()
	series := alignedSeries(perfectRows(refDate, 90), allWeek, refDate, 90)
	markov := NewMarkovModeler(analytics.DefaultSettings().Markov).Fit(BinarySequence(series))

	risk := scorer.Risk(RiskInputs{
		Series:       series,
		KPIs:         scorer.KPIs(series),
		Markov:       markov,
		MonteCarlo:   analytics.MonteCarloResult{Availability: analytics.Computed},
		Changepoints: NewChangepointDetector(analytics.DefaultSettings().Changepoint).Detect(series),
	})

	assert.Equal(t, RiskLow, risk.RiskLevel)
	assert.Less(t, risk.RiskScore, 1.0)
	assert.Empty(t, risk.RiskFactors)
	require.Len(t, risk.Recommendations, 1)
	assert.Equal(t, analytics.PriorityPositive, risk.Recommendations[0].Priority)
}

func TestScorer_Risk_RecommendationOrder(t *testing.T) {
	scorer := newTestScorer()
	// strong start, absent for the last three weeks, late and erratic when present
	rows := buildRows(refDate, 60, func(i int, date time.Time) analytics.AttendanceDay {
		if i >= 39 {
			return absentDay(date)
		}
		day := presentDay(date)
		day.CheckInMinute = intPtr(420 + (i%5)*30)
		if i%4 == 0 {
			day.LateMinutes = 20
		}
		return day
	})
	series := alignedSeries(rows, allWeek, refDate, 60)

	risk := scorer.Risk(RiskInputs{
		Series:       series,
		KPIs:         scorer.KPIs(series),
		Markov:       NewMarkovModeler(analytics.DefaultSettings().Markov).Fit(BinarySequence(series)),
		MonteCarlo:   analytics.MonteCarloResult{Availability: analytics.Unavailable("n/a")},
		Changepoints: NewChangepointDetector(analytics.DefaultSettings().Changepoint).Detect(series),
	})

	require.NotEmpty(t, risk.Recommendations)
	assert.Contains(t, risk.RiskFactors, FactorNegativeShift)
	assert.Contains(t, risk.RiskFactors, FactorDecliningTrend)
	assert.Contains(t, risk.RiskFactors, FactorLowRecentAttendance)
	last := -1
	for _, rec := range risk.Recommendations {
		rank := priorityRank(rec.Priority)
		assert.GreaterOrEqual(t, rank, last)
		last = rank
	}
}

func TestScorer_Risk_UnavailableKPIs(t *testing.T) {
	risk := newTestScorer().Risk(RiskInputs{KPIs: analytics.KPISet{Availability: analytics.Unavailable("no data")}})

	assert.False(t, risk.Available)
	assert.Equal(t, "no data", risk.Reason)
}
