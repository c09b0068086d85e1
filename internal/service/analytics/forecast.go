package analytics

import (
	"math"
	"slices"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gonum.org/v1/gonum/stat"
)

// Forecaster fits additive Holt-Winters with a weekly season.
type Forecaster struct {
	settings analytics.ForecastSettings
}

func NewForecaster(settings analytics.ForecastSettings) *Forecaster {
	return &Forecaster{settings: settings}
}

type smoothingParams struct {
	alpha, beta, gamma float64
}

type holtWintersFit struct {
	params   smoothingParams
	level    float64
	trend    float64
	seasonal []float64 // last full season, oldest first
	sse      float64
	steps    int
}

// fitHoltWinters runs the smoothing recursions over y and accumulates the
// one-step-ahead squared error. len(y) must be at least 2*seasonLength.
func fitHoltWinters(y []float64, p smoothingParams) holtWintersFit {
	n := len(y)
	m := seasonLength

	level := stat.Mean(y[:m], nil)
	trend := (stat.Mean(y[m:2*m], nil) - level) / float64(m)
	seasonal := make([]float64, n)
	for i := 0; i < m; i++ {
		seasonal[i] = y[i] - level
	}

	sse := 0.0
	for t := m; t < n; t++ {
		predicted := level + trend + seasonal[t-m]
		e := y[t] - predicted
		sse += e * e

		prevLevel := level
		level = p.alpha*(y[t]-seasonal[t-m]) + (1-p.alpha)*(level+trend)
		trend = p.beta*(level-prevLevel) + (1-p.beta)*trend
		seasonal[t] = p.gamma*(y[t]-level) + (1-p.gamma)*seasonal[t-m]
	}

	return holtWintersFit{
		params:   p,
		level:    level,
		trend:    trend,
		seasonal: seasonal[n-m:],
		sse:      sse,
		steps:    n - m,
	}
}

// gridValues returns step, 2*step, ... strictly inside (0,1).
func gridValues(step float64) []float64 {
	var out []float64
	for i := 1; float64(i)*step < 1-1e-9; i++ {
		out = append(out, float64(i)*step)
	}
	return out
}

// search picks the smoothing parameters with the lowest one-step SSE: a
// full grid followed by shrinking local refinement rounds. Ties keep the
// earlier candidate so results are reproducible.
func (f *Forecaster) search(y []float64) holtWintersFit {
	grid := gridValues(f.settings.GridStep)
	var best holtWintersFit
	found := false
	for _, a := range grid {
		for _, b := range grid {
			for _, g := range grid {
				fit := fitHoltWinters(y, smoothingParams{a, b, g})
				if !found || fit.sse < best.sse {
					best, found = fit, true
				}
			}
		}
	}

	delta := f.settings.GridStep / 2
	for round := 0; round < f.settings.RefineRounds; round++ {
		center := best.params
		for _, da := range []float64{-delta, 0, delta} {
			for _, db := range []float64{-delta, 0, delta} {
				for _, dg := range []float64{-delta, 0, delta} {
					p := smoothingParams{center.alpha + da, center.beta + db, center.gamma + dg}
					if !inOpenUnit(p.alpha) || !inOpenUnit(p.beta) || !inOpenUnit(p.gamma) {
						continue
					}
					fit := fitHoltWinters(y, p)
					if fit.sse < best.sse {
						best = fit
					}
				}
			}
		}
		delta /= 2
	}
	return best
}

func inOpenUnit(v float64) bool {
	return v > 0 && v < 1
}

// Forecast predicts the attendance probability for the days after the
// series end.
func (f *Forecaster) Forecast(series analytics.DailySeries) analytics.ForecastResult {
	y := CalendarPercent(series)
	if len(y) < 2*seasonLength {
		return analytics.ForecastResult{Availability: analytics.Unavailable("at least two weeks of data are required")}
	}

	fit := f.search(y)
	rmse := 0.0
	if fit.steps > 0 {
		rmse = math.Sqrt(fit.sse / float64(fit.steps))
	}

	result := analytics.ForecastResult{
		Availability: analytics.Computed,
		Alpha:        fit.params.alpha,
		Beta:         fit.params.beta,
		Gamma:        fit.params.gamma,
		Level:        fit.level,
		Trend:        fit.trend,
		RMSE:         rmse,
		Horizon:      make([]analytics.HorizonPoint, 0, f.settings.Horizon),
	}

	// Seasonal is reported by weekday of the last observed season.
	firstOfSeason := series.End.AddDate(0, 0, -(seasonLength - 1))
	for i, s := range fit.seasonal {
		result.Seasonal[firstOfSeason.AddDate(0, 0, i).Weekday()] = s
	}

	for h := 1; h <= f.settings.Horizon; h++ {
		date := series.End.AddDate(0, 0, h)
		predicted := fit.level + float64(h)*fit.trend + fit.seasonal[(h-1)%seasonLength]
		confidence := 100 * math.Exp(-rmse*math.Sqrt(float64(h))/f.settings.ConfidenceScale)
		result.Horizon = append(result.Horizon, analytics.HorizonPoint{
			Step:                 h,
			Date:                 dateKey(date),
			ScheduledDay:         slices.Contains(series.Weekdays, date.Weekday()),
			PredictedProbability: clamp(predicted, 0, 100),
			Confidence:           clamp(confidence, 0, 100),
		})
	}
	return result
}
