package analytics

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Grades, trend labels and risk levels.
const (
	GradeExcellent        = "excellent"
	GradeGood             = "good"
	GradeAverage          = "average"
	GradeBelowAverage     = "below average"
	GradeNeedsImprovement = "needs improvement"

	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"

	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Risk factor labels.
const (
	FactorLowRecentAttendance = "low_recent_attendance"
	FactorLowAttendanceRate   = "low_attendance_rate"
	FactorPoorLongTermOutlook = "poor_long_term_outlook"
	FactorHighChanceBelow70   = "high_probability_below_70"
	FactorNegativeShift       = "negative_behavior_shift"
	FactorFrequentLateness    = "frequent_lateness"
	FactorInconsistentCheckIn = "inconsistent_check_in"
	FactorDecliningTrend      = "declining_trend"
)

// Scorer aggregates series counts and model outputs into KPIs and risk.
type Scorer struct {
	settings analytics.ScoringSettings
}

func NewScorer(settings analytics.ScoringSettings) *Scorer {
	return &Scorer{settings: settings}
}

// round2 rounds report figures to two decimals.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// KPIs computes the headline indicators of the window.
func (s *Scorer) KPIs(series analytics.DailySeries) analytics.KPISet {
	scheduled, present, onTime := series.Totals()
	if scheduled == 0 {
		return analytics.KPISet{Availability: analytics.Unavailable("no scheduled days in window")}
	}

	attendance := float64(present) / float64(scheduled) * 100
	punctuality := 0.0
	if present > 0 {
		punctuality = float64(onTime) / float64(present) * 100
	}
	consistency := s.consistency(series)
	index := s.settings.AttendanceWeight*attendance +
		s.settings.PunctualityWeight*punctuality +
		s.settings.ConsistencyWeight*consistency

	return analytics.KPISet{
		Availability:            analytics.Computed,
		AttendanceRate:          round2(attendance),
		PunctualityRate:         round2(punctuality),
		ConsistencyScore:        round2(consistency),
		OverallPerformanceIndex: round2(index),
		Grade:                   s.Grade(index),
		TrendLabel:              s.trend(series.Rates()),
		ScheduledDays:           scheduled,
		PresentDays:             present,
		OnTimeDays:              onTime,
	}
}

// consistency is 100 / (1 + var(check-in minutes) / scale); no check-ins
// scores 0.
func (s *Scorer) consistency(series analytics.DailySeries) float64 {
	var checkIns []float64
	for _, d := range series.Days {
		for _, m := range d.CheckIns {
			checkIns = append(checkIns, float64(m))
		}
	}
	switch len(checkIns) {
	case 0:
		return 0
	case 1:
		return 100
	}
	_, variance := stat.MeanVariance(checkIns, nil)
	return clamp(100/(1+variance/s.settings.ConsistencyVarianceScale), 0, 100)
}

// Grade maps the performance index onto its band.
func (s *Scorer) Grade(index float64) string {
	switch {
	case index >= s.settings.GradeExcellent:
		return GradeExcellent
	case index >= s.settings.GradeGood:
		return GradeGood
	case index >= s.settings.GradeAverage:
		return GradeAverage
	case index >= s.settings.GradeBelowAverage:
		return GradeBelowAverage
	default:
		return GradeNeedsImprovement
	}
}

// trend compares the attendance rate of the first and second half.
func (s *Scorer) trend(rates []float64) string {
	if len(rates) < 2 {
		return TrendStable
	}
	half := len(rates) / 2
	delta := (stat.Mean(rates[half:], nil) - stat.Mean(rates[:half], nil)) * 100
	switch {
	case delta > s.settings.TrendDelta:
		return TrendImproving
	case delta < -s.settings.TrendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// recentRate is the attendance ratio over the last RecentWorkingDays
// scheduled days.
func (s *Scorer) recentRate(series analytics.DailySeries) float64 {
	days := series.ScheduledDays()
	if len(days) > s.settings.RecentWorkingDays {
		days = days[len(days)-s.settings.RecentWorkingDays:]
	}
	scheduled, present := 0, 0
	for _, d := range days {
		scheduled += d.Scheduled
		present += d.Present
	}
	if scheduled == 0 {
		return 0
	}
	return float64(present) / float64(scheduled)
}

// RiskInputs bundles what the risk score is blended from.
type RiskInputs struct {
	Series       analytics.DailySeries
	KPIs         analytics.KPISet
	Markov       analytics.MarkovModel
	MonteCarlo   analytics.MonteCarloResult
	Changepoints analytics.ChangepointSet
}

// Risk blends the recent deficit, the Markov long-run deficit, the
// simulated chance of dropping below 70% and the largest negative shift.
// A component whose model is unavailable falls back to the window deficit.
func (s *Scorer) Risk(in RiskInputs) analytics.RiskProfile {
	if !in.KPIs.Available {
		return analytics.RiskProfile{Availability: analytics.Unavailable(in.KPIs.Reason)}
	}

	windowDeficit := 1 - in.KPIs.AttendanceRate/100
	recent := s.recentRate(in.Series)

	markovDeficit := windowDeficit
	longTerm := in.KPIs.AttendanceRate
	if in.Markov.Available {
		markovDeficit = 1 - in.Markov.Stationary[analytics.StatePresent]
		longTerm = in.Markov.PredictedRate
	}

	below70 := windowDeficit
	if in.MonteCarlo.Available {
		below70 = in.MonteCarlo.RiskAnalysis.ProbabilityBelow70
	}

	drop := 0.0
	if in.Changepoints.Available {
		drop = in.Changepoints.LargestDrop()
	}

	score := 100 * (s.settings.RecentWeight*(1-recent) +
		s.settings.MarkovWeight*markovDeficit +
		s.settings.MonteCarloWeight*below70 +
		s.settings.ChangepointWeight*drop)
	score = clamp(score, 0, 100)

	var factors []string
	var recs []analytics.Recommendation
	add := func(factor, priority, message string) {
		if factor != "" {
			factors = append(factors, factor)
		}
		if message != "" {
			recs = append(recs, analytics.Recommendation{Priority: priority, Message: message})
		}
	}

	k := in.KPIs
	if recent*100 < s.settings.LowAttendance {
		add(FactorLowRecentAttendance, analytics.PriorityHigh,
			fmt.Sprintf("Attendance over the last %d working days is %.0f%%; follow up on recent absences now.", s.settings.RecentWorkingDays, recent*100))
	}
	if k.AttendanceRate < s.settings.LowAttendance {
		add(FactorLowAttendanceRate, analytics.PriorityHigh,
			fmt.Sprintf("Attendance rate is %.1f%%; schedule a one-on-one to agree on an attendance plan.", k.AttendanceRate))
	}
	if k.PresentDays > 0 && k.PunctualityRate < s.settings.LowPunctuality {
		add(FactorFrequentLateness, analytics.PriorityHigh,
			fmt.Sprintf("Punctuality is %.1f%%; review commute constraints or the shift start time.", k.PunctualityRate))
	} else if k.PresentDays > 0 && k.PunctualityRate < s.settings.FairPunctuality {
		add("", analytics.PriorityMedium,
			fmt.Sprintf("Punctuality is %.1f%%; a reminder before shift start may help.", k.PunctualityRate))
	}
	if in.MonteCarlo.Available && below70 > s.settings.HighBelow70Chance {
		add(FactorHighChanceBelow70, analytics.PriorityHigh,
			fmt.Sprintf("Simulations give a %.0f%% chance of attendance below 70%% over the next %d working days.", below70*100, in.MonteCarlo.Days))
	}
	if in.Markov.Available && longTerm < s.settings.LowLongTermRate {
		add(FactorPoorLongTermOutlook, analytics.PriorityMedium,
			fmt.Sprintf("The long-run attendance outlook is %.1f%%; absences tend to repeat once they start.", longTerm))
	}
	if drop >= s.settings.SignificantDropPct {
		add(FactorNegativeShift, analytics.PriorityMedium,
			fmt.Sprintf("Attendance dropped by %.0f points%s; check for changed circumstances.", drop*100, s.dropSince(in.Changepoints)))
	}
	if k.ConsistencyScore < s.settings.LowConsistency && k.PresentDays > 0 {
		add(FactorInconsistentCheckIn, analytics.PriorityMedium,
			"Check-in times vary widely; agree on a fixed arrival routine.")
	}
	if k.TrendLabel == TrendDeclining {
		add(FactorDecliningTrend, analytics.PriorityMedium,
			"Attendance declined in the second half of the window; intervene early.")
	}
	if len(recs) == 0 {
		add("", analytics.PriorityPositive,
			"Attendance and punctuality are on track; recognise the consistent performance.")
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
	if factors == nil {
		factors = []string{}
	}

	return analytics.RiskProfile{
		Availability:    analytics.Computed,
		RiskScore:       round2(score),
		RiskLevel:       s.RiskLevel(score),
		RiskFactors:     factors,
		Recommendations: recs,
	}
}

// dropSince names the start date of the segment with the largest drop.
func (s *Scorer) dropSince(set analytics.ChangepointSet) string {
	start, worst := "", 0.0
	for _, seg := range set.Segments {
		if -seg.Shift > worst {
			start, worst = seg.StartDate, -seg.Shift
		}
	}
	if start == "" {
		return ""
	}
	return " starting " + start
}

// RiskLevel maps a 0-100 score to its band.
func (s *Scorer) RiskLevel(score float64) string {
	switch {
	case score >= s.settings.RiskCritical:
		return RiskCritical
	case score >= s.settings.RiskHigh:
		return RiskHigh
	case score >= s.settings.RiskMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

func priorityRank(priority string) int {
	switch priority {
	case analytics.PriorityHigh:
		return 0
	case analytics.PriorityMedium:
		return 1
	default:
		return 2
	}
}
