package analytics

import (
	"math"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gonum.org/v1/gonum/stat"
)

const seasonLength = 7

// Decompose splits the calendar series into trend, weekly seasonal and
// residual parts using a centred moving average (classical additive).
func Decompose(values []float64) analytics.Decomposition {
	n := len(values)
	if n < 2*seasonLength {
		return analytics.Decomposition{Availability: analytics.Unavailable("at least two weeks of data are required")}
	}

	trend := movingAverage(values, seasonLength)

	// Average detrended value per position in the week, centred on zero.
	var sums [seasonLength]float64
	var counts [seasonLength]int
	for i, v := range values {
		sums[i%seasonLength] += v - trend[i]
		counts[i%seasonLength]++
	}
	var profile [seasonLength]float64
	profileMean := 0.0
	for i := range profile {
		profile[i] = sums[i] / float64(counts[i])
		profileMean += profile[i]
	}
	profileMean /= seasonLength

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range values {
		seasonal[i] = profile[i%seasonLength] - profileMean
		residual[i] = v - trend[i] - seasonal[i]
	}

	return analytics.Decomposition{
		Availability:     analytics.Computed,
		Trend:            trend,
		Seasonal:         seasonal,
		Residual:         residual,
		TrendStrength:    strength(residual, trend),
		SeasonalStrength: strength(residual, seasonal),
	}
}

// movingAverage is a centred moving average of the given odd width. Edges
// where the window does not fit repeat the nearest full average.
func movingAverage(values []float64, width int) []float64 {
	n := len(values)
	half := width / 2
	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		out[i] = stat.Mean(values[i-half:i+half+1], nil)
	}
	for i := 0; i < half; i++ {
		out[i] = out[half]
		out[n-1-i] = out[n-1-half]
	}
	return out
}

// strength is max(0, 1 - var(R)/var(C+R)) clamped to [0,1].
func strength(residual, component []float64) float64 {
	combined := make([]float64, len(residual))
	for i := range residual {
		combined[i] = residual[i] + component[i]
	}
	total := stat.Variance(combined, nil)
	if total < 1e-12 || math.IsNaN(total) {
		return 0
	}
	return clamp(1-stat.Variance(residual, nil)/total, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
