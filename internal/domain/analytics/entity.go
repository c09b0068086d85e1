package analytics

import (
	"time"
)

// AttendanceDay is one calendar day as returned by the attendance store.
// Present is nil when the store has no record for that day.
type AttendanceDay struct {
	Date          time.Time
	Present       *bool
	OnLeave       bool
	CheckInMinute *int // minutes after local midnight
	LateMinutes   int
	BranchID      string
}

// SeriesDay aggregates one calendar day of a subject. For an individual
// Scheduled is 0 or 1; for a branch it is the number of employees expected.
type SeriesDay struct {
	Date      time.Time
	Scheduled int
	Present   int
	OnTime    int
	CheckIns  []int
}

// Rate returns the present ratio of the day, 0 when nothing was scheduled.
func (d SeriesDay) Rate() float64 {
	if d.Scheduled == 0 {
		return 0
	}
	return float64(d.Present) / float64(d.Scheduled)
}

// DailySeries is a calendar aligned window ending at End (inclusive).
type DailySeries struct {
	SubjectID string
	Start     time.Time
	End       time.Time
	Weekdays  []time.Weekday
	Days      []SeriesDay
}

// Len returns the window length in calendar days.
func (s DailySeries) Len() int {
	return len(s.Days)
}

// ScheduledDays returns the days that count towards attendance, in order.
func (s DailySeries) ScheduledDays() []SeriesDay {
	out := make([]SeriesDay, 0, len(s.Days))
	for _, d := range s.Days {
		if d.Scheduled > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Rates returns the per-day present ratio over scheduled days only.
func (s DailySeries) Rates() []float64 {
	days := s.ScheduledDays()
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = d.Rate()
	}
	return out
}

// Totals sums scheduled, present and on-time counts over the window.
func (s DailySeries) Totals() (scheduled, present, onTime int) {
	for _, d := range s.Days {
		scheduled += d.Scheduled
		present += d.Present
		onTime += d.OnTime
	}
	return scheduled, present, onTime
}

// Availability marks whether a result was computed. Results are always
// present in a report; unavailable ones carry the reason.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Unavailable builds an Availability with the given reason.
func Unavailable(reason string) Availability {
	return Availability{Available: false, Reason: reason}
}

// Computed is the Availability of a successfully computed result.
var Computed = Availability{Available: true}

// ComputedDegenerate marks a result computed on a zero variance series.
var ComputedDegenerate = Availability{Available: true, Reason: ErrDegenerateSeries.Error()}

type Decomposition struct {
	Availability
	Trend            []float64 `json:"trend"`
	Seasonal         []float64 `json:"seasonal"`
	Residual         []float64 `json:"residual"`
	TrendStrength    float64   `json:"trend_strength"`
	SeasonalStrength float64   `json:"seasonal_strength"`
}

type HorizonPoint struct {
	Step                 int     `json:"step"`
	Date                 string  `json:"date"`
	ScheduledDay         bool    `json:"scheduled_day"`
	PredictedProbability float64 `json:"predicted_probability"`
	Confidence           float64 `json:"confidence"`
}

type ForecastResult struct {
	Availability
	Alpha    float64        `json:"alpha"`
	Beta     float64        `json:"beta"`
	Gamma    float64        `json:"gamma"`
	Level    float64        `json:"level"`
	Trend    float64        `json:"trend"`
	Seasonal [7]float64     `json:"seasonal"`
	Horizon  []HorizonPoint `json:"horizon"`
	RMSE     float64        `json:"rmse"`
}

type CycleEntry struct {
	PeriodDays     float64 `json:"period_days"`
	Strength       float64 `json:"strength"`
	Interpretation string  `json:"interpretation"`
}

// CycleSpectrum holds the strongest cycles ordered by strength, descending.
type CycleSpectrum struct {
	Availability
	Degenerate bool         `json:"degenerate"`
	NoiseFloor float64      `json:"noise_floor"`
	Cycles     []CycleEntry `json:"cycles"`
}

// Dominant returns the strongest cycle, if any.
func (c CycleSpectrum) Dominant() (CycleEntry, bool) {
	if len(c.Cycles) == 0 {
		return CycleEntry{}, false
	}
	return c.Cycles[0], true
}

// Segment covers [StartIndex, EndIndex) of the scheduled-day series.
type Segment struct {
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Mean       float64 `json:"mean"`
	Variance   float64 `json:"variance"`
	Shift      float64 `json:"shift"`
}

type ChangepointSet struct {
	Availability
	Degenerate   bool      `json:"degenerate"`
	Threshold    float64   `json:"threshold"`
	Changepoints []int     `json:"changepoints"`
	Segments     []Segment `json:"segments"`
}

// LargestDrop returns the largest negative shift between consecutive
// segments as a positive number, 0 when there is none.
func (c ChangepointSet) LargestDrop() float64 {
	drop := 0.0
	for _, s := range c.Segments {
		if -s.Shift > drop {
			drop = -s.Shift
		}
	}
	return drop
}

// Markov states.
const (
	StatePresent = 0
	StateAbsent  = 1
)

// TransitionMatrix is row-stochastic over {present, absent}.
type TransitionMatrix [2][2]float64

// StationaryDistribution is indexed by StatePresent / StateAbsent.
type StationaryDistribution [2]float64

type MarkovModel struct {
	Availability
	Counts             [2][2]int              `json:"counts"`
	Transition         TransitionMatrix       `json:"transition"`
	Stationary         StationaryDistribution `json:"stationary"`
	Iterations         int                    `json:"iterations"`
	Converged          bool                   `json:"converged"`
	ExpectedPresentRun float64                `json:"expected_present_run"`
	ExpectedAbsentRun  float64                `json:"expected_absent_run"`
	PredictedRate      float64                `json:"predicted_rate"`
}

type Scenarios struct {
	Best     float64 `json:"best"`
	Expected float64 `json:"expected"`
	Worst    float64 `json:"worst"`
}

type RiskAnalysis struct {
	ProbabilityBelow60 float64 `json:"probability_below_60"`
	ProbabilityBelow70 float64 `json:"probability_below_70"`
	ProbabilityBelow80 float64 `json:"probability_below_80"`
}

type MonteCarloResult struct {
	Availability
	Simulations  int          `json:"simulations"`
	Days         int          `json:"days"`
	Seed         uint64       `json:"seed"`
	ByWeekday    bool         `json:"by_weekday"`
	Scenarios    Scenarios    `json:"scenarios"`
	RiskAnalysis RiskAnalysis `json:"risk_analysis"`
}

type KPISet struct {
	Availability
	AttendanceRate          float64 `json:"attendance_rate"`
	PunctualityRate         float64 `json:"punctuality_rate"`
	ConsistencyScore        float64 `json:"consistency_score"`
	OverallPerformanceIndex float64 `json:"overall_performance_index"`
	Grade                   string  `json:"grade"`
	TrendLabel              string  `json:"trend_label"`
	ScheduledDays           int     `json:"scheduled_days"`
	PresentDays             int     `json:"present_days"`
	OnTimeDays              int     `json:"on_time_days"`
}

// Recommendation priorities, highest first.
const (
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityPositive = "positive"
)

type Recommendation struct {
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

type RiskProfile struct {
	Availability
	RiskScore       float64          `json:"risk_score"`
	RiskLevel       string           `json:"risk_level"`
	RiskFactors     []string         `json:"risk_factors"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Analysis modes.
const (
	ModeIndividual = "individual"
	ModeBranch     = "branch"
)

// Report statuses.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

type EmployeeRef struct {
	ID       string
	FullName string
}

type BranchRef struct {
	ID        string
	CompanyID string
	Name      string
}

type EmployeeSummary struct {
	EmployeeID       string  `json:"employee_id"`
	FullName         string  `json:"full_name"`
	AttendanceRate   float64 `json:"attendance_rate"`
	PunctualityRate  float64 `json:"punctuality_rate"`
	ConsistencyScore float64 `json:"consistency_score"`
	Grade            string  `json:"grade"`
	RiskScore        float64 `json:"risk_score"`
	RiskLevel        string  `json:"risk_level"`
}

type SkippedEmployee struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Reason     string `json:"reason"`
}

// PerformanceDistribution buckets employees by attendance rate.
type PerformanceDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Average   int `json:"average"`
	Poor      int `json:"poor"`
}

type BranchSummary struct {
	RosterSize            int                     `json:"roster_size"`
	Analyzed              int                     `json:"analyzed"`
	AverageAttendanceRate float64                 `json:"average_attendance_rate"`
	Distribution          PerformanceDistribution `json:"distribution"`
	TopPerformers         []EmployeeSummary       `json:"top_performers"`
	NeedsAttention        []EmployeeSummary       `json:"needs_attention"`
	Skipped               []SkippedEmployee       `json:"skipped"`
}

type AnalysisReport struct {
	ID              string           `json:"id"`
	SubjectID       string           `json:"subject_id"`
	Mode            string           `json:"mode"`
	WindowDays      int              `json:"window_days"`
	Reference       string           `json:"reference_date"`
	SettingsVersion string           `json:"settings_version"`
	Status          string           `json:"status"`
	KPIs            KPISet           `json:"kpis"`
	Decomposition   Decomposition    `json:"decomposition"`
	Forecast        ForecastResult   `json:"forecast"`
	Cycles          CycleSpectrum    `json:"cycles"`
	Changepoints    ChangepointSet   `json:"changepoints"`
	Markov          MarkovModel      `json:"markov"`
	MonteCarlo      MonteCarloResult `json:"monte_carlo"`
	Risk            RiskProfile      `json:"risk"`
	Branch          *BranchSummary   `json:"branch,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
