package analytics

import (
	"fmt"
	"time"
)

// SettingsVersion identifies the default tuning below. Bump it whenever a
// default threshold or weight changes so reports stay comparable.
const SettingsVersion = "2025.1"

// Settings holds every tunable of the analytics engine.
type Settings struct {
	Version           string        `yaml:"version"`
	IndividualWindow  int           `yaml:"individual_window_days"`
	BranchWindow      int           `yaml:"branch_window_days"`
	MaxWindow         int           `yaml:"max_window_days"`
	MinWorkingDays    int           `yaml:"min_working_days"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	DefaultWorkingDay []int         `yaml:"default_working_weekdays"` // 0=Sunday ... 6=Saturday

	Forecast    ForecastSettings    `yaml:"forecast"`
	Cycle       CycleSettings       `yaml:"cycle"`
	Changepoint ChangepointSettings `yaml:"changepoint"`
	Markov      MarkovSettings      `yaml:"markov"`
	MonteCarlo  MonteCarloSettings  `yaml:"monte_carlo"`
	Scoring     ScoringSettings     `yaml:"scoring"`
	Branch      BranchSettings      `yaml:"branch"`
}

type ForecastSettings struct {
	Horizon         int     `yaml:"horizon"`
	GridStep        float64 `yaml:"grid_step"`
	RefineRounds    int     `yaml:"refine_rounds"`
	ConfidenceScale float64 `yaml:"confidence_scale"`
}

type CycleSettings struct {
	TopK            int     `yaml:"top_k"`
	NoiseFloorSigma float64 `yaml:"noise_floor_sigma"`
	LabelTolerance  float64 `yaml:"label_tolerance"`
}

type ChangepointSettings struct {
	MinSegmentLength int     `yaml:"min_segment_length"`
	ThresholdOffset  float64 `yaml:"threshold_offset"`
	MergeZ           float64 `yaml:"merge_z"`
}

type MarkovSettings struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

type MonteCarloSettings struct {
	Days                 int `yaml:"days"`
	Trials               int `yaml:"trials"`
	MaxDays              int `yaml:"max_days"`
	MaxTrials            int `yaml:"max_trials"`
	MinSamplesPerWeekday int `yaml:"min_samples_per_weekday"`
}

type ScoringSettings struct {
	AttendanceWeight         float64 `yaml:"attendance_weight"`
	PunctualityWeight        float64 `yaml:"punctuality_weight"`
	ConsistencyWeight        float64 `yaml:"consistency_weight"`
	ConsistencyVarianceScale float64 `yaml:"consistency_variance_scale"`

	GradeExcellent    float64 `yaml:"grade_excellent"`
	GradeGood         float64 `yaml:"grade_good"`
	GradeAverage      float64 `yaml:"grade_average"`
	GradeBelowAverage float64 `yaml:"grade_below_average"`

	TrendDelta float64 `yaml:"trend_delta"`

	RecentWorkingDays  int     `yaml:"recent_working_days"`
	RecentWeight       float64 `yaml:"recent_weight"`
	MarkovWeight       float64 `yaml:"markov_weight"`
	MonteCarloWeight   float64 `yaml:"monte_carlo_weight"`
	ChangepointWeight  float64 `yaml:"changepoint_weight"`
	RiskMedium         float64 `yaml:"risk_medium"`
	RiskHigh           float64 `yaml:"risk_high"`
	RiskCritical       float64 `yaml:"risk_critical"`
	LowAttendance      float64 `yaml:"low_attendance"`
	LowPunctuality     float64 `yaml:"low_punctuality"`
	FairPunctuality    float64 `yaml:"fair_punctuality"`
	LowConsistency     float64 `yaml:"low_consistency"`
	LowLongTermRate    float64 `yaml:"low_long_term_rate"`
	HighBelow70Chance  float64 `yaml:"high_below_70_chance"`
	SignificantDropPct float64 `yaml:"significant_drop"`
}

type BranchSettings struct {
	Workers                 int     `yaml:"workers"`
	RankingSize             int     `yaml:"ranking_size"`
	NeedsAttentionBelow     float64 `yaml:"needs_attention_below"`
	DistributionExcellent   float64 `yaml:"distribution_excellent"`
	DistributionGood        float64 `yaml:"distribution_good"`
	DistributionAverage     float64 `yaml:"distribution_average"`
	MaxEmployeesPerAnalysis int     `yaml:"max_employees"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Version:           SettingsVersion,
		IndividualWindow:  90,
		BranchWindow:      30,
		MaxWindow:         365,
		MinWorkingDays:    14,
		RequestTimeout:    10 * time.Second,
		DefaultWorkingDay: []int{1, 2, 3, 4, 5},
		Forecast: ForecastSettings{
			Horizon:         7,
			GridStep:        0.1,
			RefineRounds:    3,
			ConfidenceScale: 100,
		},
		Cycle: CycleSettings{
			TopK:            5,
			NoiseFloorSigma: 2,
			LabelTolerance:  0.15,
		},
		Changepoint: ChangepointSettings{
			MinSegmentLength: 5,
			ThresholdOffset:  0,
			MergeZ:           1.96,
		},
		Markov: MarkovSettings{
			Tolerance:     1e-6,
			MaxIterations: 10000,
		},
		MonteCarlo: MonteCarloSettings{
			Days:                 30,
			Trials:               1000,
			MaxDays:              365,
			MaxTrials:            20000,
			MinSamplesPerWeekday: 4,
		},
		Scoring: ScoringSettings{
			AttendanceWeight:         0.4,
			PunctualityWeight:        0.3,
			ConsistencyWeight:        0.3,
			ConsistencyVarianceScale: 900,
			GradeExcellent:           95,
			GradeGood:                85,
			GradeAverage:             70,
			GradeBelowAverage:        60,
			TrendDelta:               5,
			RecentWorkingDays:        14,
			RecentWeight:             0.35,
			MarkovWeight:             0.25,
			MonteCarloWeight:         0.25,
			ChangepointWeight:        0.15,
			RiskMedium:               25,
			RiskHigh:                 50,
			RiskCritical:             75,
			LowAttendance:            80,
			LowPunctuality:           70,
			FairPunctuality:          85,
			LowConsistency:           50,
			LowLongTermRate:          80,
			HighBelow70Chance:        0.3,
			SignificantDropPct:       0.2,
		},
		Branch: BranchSettings{
			Workers:                 8,
			RankingSize:             5,
			NeedsAttentionBelow:     85,
			DistributionExcellent:   95,
			DistributionGood:        85,
			DistributionAverage:     70,
			MaxEmployeesPerAnalysis: 500,
		},
	}
}

// Validate checks internal consistency of the settings
func (s Settings) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("version is required")
	}
	if s.MaxWindow <= 0 {
		return fmt.Errorf("max_window_days must be positive")
	}
	if s.IndividualWindow <= 0 || s.IndividualWindow > s.MaxWindow {
		return fmt.Errorf("individual_window_days must be between 1 and %d", s.MaxWindow)
	}
	if s.BranchWindow <= 0 || s.BranchWindow > s.MaxWindow {
		return fmt.Errorf("branch_window_days must be between 1 and %d", s.MaxWindow)
	}
	if s.MinWorkingDays < 2 {
		return fmt.Errorf("min_working_days must be at least 2")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	for _, d := range s.DefaultWorkingDay {
		if d < 0 || d > 6 {
			return fmt.Errorf("default_working_weekdays must be between 0 and 6")
		}
	}
	if s.Forecast.Horizon <= 0 {
		return fmt.Errorf("forecast.horizon must be positive")
	}
	if s.Forecast.GridStep <= 0 || s.Forecast.GridStep >= 0.5 {
		return fmt.Errorf("forecast.grid_step must be in (0, 0.5)")
	}
	if s.Forecast.ConfidenceScale <= 0 {
		return fmt.Errorf("forecast.confidence_scale must be positive")
	}
	if s.Cycle.TopK <= 0 {
		return fmt.Errorf("cycle.top_k must be positive")
	}
	if s.Cycle.NoiseFloorSigma < 0 || s.Cycle.LabelTolerance < 0 {
		return fmt.Errorf("cycle.noise_floor_sigma and cycle.label_tolerance must not be negative")
	}
	if s.Changepoint.MinSegmentLength < 2 {
		return fmt.Errorf("changepoint.min_segment_length must be at least 2")
	}
	if s.Markov.Tolerance <= 0 || s.Markov.MaxIterations <= 0 {
		return fmt.Errorf("markov.tolerance and markov.max_iterations must be positive")
	}
	mc := s.MonteCarlo
	if mc.Days <= 0 || mc.Trials <= 0 || mc.MaxDays <= 0 || mc.MaxTrials <= 0 {
		return fmt.Errorf("monte_carlo days and trials must be positive")
	}
	if mc.MinSamplesPerWeekday < 0 {
		return fmt.Errorf("monte_carlo.min_samples_per_weekday must not be negative")
	}
	sc := s.Scoring
	if w := sc.AttendanceWeight + sc.PunctualityWeight + sc.ConsistencyWeight; w < 0.999 || w > 1.001 {
		return fmt.Errorf("scoring performance weights must sum to 1, got %.3f", w)
	}
	if w := sc.RecentWeight + sc.MarkovWeight + sc.MonteCarloWeight + sc.ChangepointWeight; w < 0.999 || w > 1.001 {
		return fmt.Errorf("scoring risk weights must sum to 1, got %.3f", w)
	}
	if sc.RecentWorkingDays <= 0 {
		return fmt.Errorf("scoring.recent_working_days must be positive")
	}
	if sc.ConsistencyVarianceScale <= 0 {
		return fmt.Errorf("scoring.consistency_variance_scale must be positive")
	}
	if !(sc.RiskMedium < sc.RiskHigh && sc.RiskHigh < sc.RiskCritical) {
		return fmt.Errorf("scoring risk bands must be increasing")
	}
	if s.Branch.Workers <= 0 || s.Branch.RankingSize <= 0 {
		return fmt.Errorf("branch.workers and branch.ranking_size must be positive")
	}
	return nil
}

// WorkingWeekdays converts DefaultWorkingDay to time.Weekday values.
func (s Settings) WorkingWeekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(s.DefaultWorkingDay))
	for _, d := range s.DefaultWorkingDay {
		out = append(out, time.Weekday(d))
	}
	return out
}
