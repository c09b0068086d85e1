package analytics

import (
	"math"
	"sort"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gonum.org/v1/gonum/stat"
)

// ChangepointDetector segments the scheduled-day series at mean shifts.
type ChangepointDetector struct {
	settings analytics.ChangepointSettings
}

func NewChangepointDetector(settings analytics.ChangepointSettings) *ChangepointDetector {
	return &ChangepointDetector{settings: settings}
}

// Threshold is the break significance for a series of length n; it grows
// with sqrt(2 ln n) so longer series need stronger evidence.
func (d *ChangepointDetector) Threshold(n int) float64 {
	if n < 2 {
		return math.Inf(1)
	}
	return math.Sqrt(2*math.Log(float64(n))) + d.settings.ThresholdOffset
}

// prefixSums allows O(1) segment means.
type prefixSums []float64

func newPrefixSums(x []float64) prefixSums {
	p := make(prefixSums, len(x)+1)
	for i, v := range x {
		p[i+1] = p[i] + v
	}
	return p
}

func (p prefixSums) mean(start, end int) float64 {
	return (p[end] - p[start]) / float64(end-start)
}

// shiftStatistic is the standardized difference between the means of
// [s,k) and [k,e).
func shiftStatistic(p prefixSums, sigma float64, s, k, e int) float64 {
	nl, nr := float64(k-s), float64(e-k)
	return math.Abs(p.mean(s, k)-p.mean(k, e)) / (sigma * math.Sqrt(1/nl+1/nr))
}

// Detect partitions [0, N) of the scheduled-day series into contiguous
// segments.
func (d *ChangepointDetector) Detect(series analytics.DailySeries) analytics.ChangepointSet {
	days := series.ScheduledDays()
	x := series.Rates()
	n := len(x)
	if n == 0 {
		return analytics.ChangepointSet{Availability: analytics.Unavailable("no scheduled days in window")}
	}

	threshold := d.Threshold(n)
	result := analytics.ChangepointSet{
		Availability: analytics.Computed,
		Threshold:    threshold,
		Changepoints: []int{},
	}

	sigma := 0.0
	if n > 1 {
		_, sigma = stat.MeanStdDev(x, nil)
	}
	if sigma < 1e-9 || math.IsNaN(sigma) {
		result.Degenerate = true
		result.Availability = analytics.ComputedDegenerate
		result.Segments = buildSegments(x, days, []int{0, n})
		return result
	}

	p := newPrefixSums(x)
	minLen := d.settings.MinSegmentLength
	breaks := []int{}

	var split func(s, e int)
	split = func(s, e int) {
		if e-s < 2*minLen {
			return
		}
		bestK, bestStat := -1, 0.0
		for k := s + minLen; k <= e-minLen; k++ {
			if z := shiftStatistic(p, sigma, s, k, e); z > bestStat {
				bestK, bestStat = k, z
			}
		}
		if bestK < 0 || bestStat <= threshold {
			return
		}
		breaks = append(breaks, bestK)
		split(s, bestK)
		split(bestK, e)
	}
	split(0, n)
	sort.Ints(breaks)

	bounds := append(append([]int{0}, breaks...), n)
	bounds = d.mergeIndistinct(p, sigma, bounds)

	result.Segments = buildSegments(x, days, bounds)
	result.Changepoints = append(result.Changepoints, bounds[1:len(bounds)-1]...)
	return result
}

// mergeIndistinct removes breakpoints whose neighbouring segments have
// means closer than MergeZ standard errors, weakest pair first.
func (d *ChangepointDetector) mergeIndistinct(p prefixSums, sigma float64, bounds []int) []int {
	for len(bounds) > 2 {
		weakest, weakestStat := -1, math.Inf(1)
		for i := 1; i < len(bounds)-1; i++ {
			z := shiftStatistic(p, sigma, bounds[i-1], bounds[i], bounds[i+1])
			if z < weakestStat {
				weakest, weakestStat = i, z
			}
		}
		if weakestStat >= d.settings.MergeZ {
			break
		}
		bounds = append(bounds[:weakest], bounds[weakest+1:]...)
	}
	return bounds
}

func buildSegments(x []float64, days []analytics.SeriesDay, bounds []int) []analytics.Segment {
	segments := make([]analytics.Segment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		s, e := bounds[i], bounds[i+1]
		part := x[s:e]
		seg := analytics.Segment{
			StartIndex: s,
			EndIndex:   e,
			StartDate:  dateKey(days[s].Date),
			EndDate:    dateKey(days[e-1].Date),
			Mean:       stat.Mean(part, nil),
		}
		if len(part) > 1 {
			seg.Variance = stat.Variance(part, nil)
		}
		if i > 0 {
			seg.Shift = seg.Mean - segments[i-1].Mean
		}
		segments = append(segments, seg)
	}
	return segments
}
