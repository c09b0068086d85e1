package analytics

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// canonicalPeriods maps well known attendance rhythms to labels.
var canonicalPeriods = []struct {
	days  float64
	label string
}{
	{7, "weekly"},
	{14, "biweekly"},
	{30, "monthly"},
}

const customPeriodLabel = "custom period"

// CycleDetector finds dominant periodic patterns via the power spectrum.
type CycleDetector struct {
	settings analytics.CycleSettings
}

func NewCycleDetector(settings analytics.CycleSettings) *CycleDetector {
	return &CycleDetector{settings: settings}
}

// Detect returns the top cycles of the calendar series. A constant series
// yields an empty, degenerate spectrum.
func (d *CycleDetector) Detect(series analytics.DailySeries) analytics.CycleSpectrum {
	values := CalendarPercent(series)
	n := len(values)
	if n < 4 {
		return analytics.CycleSpectrum{Availability: analytics.Unavailable("series too short for spectral analysis")}
	}

	mean := stat.Mean(values, nil)
	centered := make([]float64, n)
	variance := 0.0
	for i, v := range values {
		centered[i] = v - mean
		variance += centered[i] * centered[i]
	}
	if variance/float64(n) < 1e-9 {
		return analytics.CycleSpectrum{Availability: analytics.ComputedDegenerate, Degenerate: true, Cycles: []analytics.CycleEntry{}}
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, centered)

	// Bins 1..n/2; the DC bin is zero after centring.
	power := make([]float64, 0, n/2)
	total := 0.0
	for k := 1; k <= n/2; k++ {
		p := cmplx.Abs(coeffs[k])
		p *= p
		power = append(power, p)
		total += p
	}

	pMean, pStd := stat.MeanStdDev(power, nil)
	if math.IsNaN(pStd) {
		pStd = 0
	}
	floor := pMean + d.settings.NoiseFloorSigma*pStd

	type candidate struct {
		k     int
		power float64
	}
	var candidates []candidate
	for i, p := range power {
		if p > floor {
			candidates = append(candidates, candidate{k: i + 1, power: p})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].power > candidates[j].power
	})
	if len(candidates) > d.settings.TopK {
		candidates = candidates[:d.settings.TopK]
	}

	cycles := make([]analytics.CycleEntry, 0, len(candidates))
	for _, c := range candidates {
		period := float64(n) / float64(c.k)
		cycles = append(cycles, analytics.CycleEntry{
			PeriodDays:     period,
			Strength:       clamp(c.power/total, 0, 1),
			Interpretation: d.interpret(period),
		})
	}

	return analytics.CycleSpectrum{
		Availability: analytics.Computed,
		NoiseFloor:   floor,
		Cycles:       cycles,
	}
}

// interpret labels a period by the nearest canonical rhythm within the
// configured relative tolerance.
func (d *CycleDetector) interpret(period float64) string {
	label := customPeriodLabel
	bestDist := math.Inf(1)
	for _, c := range canonicalPeriods {
		dist := math.Abs(period-c.days) / c.days
		if dist <= d.settings.LabelTolerance && dist < bestDist {
			label, bestDist = c.label, dist
		}
	}
	return label
}
