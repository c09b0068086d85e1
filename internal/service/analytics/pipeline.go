package analytics

import (
	"context"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs every analytic component over one aligned series.
type Pipeline struct {
	forecaster   *Forecaster
	cycles       *CycleDetector
	changepoints *ChangepointDetector
	markov       *MarkovModeler
	monteCarlo   *MonteCarloSimulator
	scorer       *Scorer
}

func NewPipeline(settings analytics.Settings) *Pipeline {
	return &Pipeline{
		forecaster:   NewForecaster(settings.Forecast),
		cycles:       NewCycleDetector(settings.Cycle),
		changepoints: NewChangepointDetector(settings.Changepoint),
		markov:       NewMarkovModeler(settings.Markov),
		monteCarlo:   NewMonteCarloSimulator(settings.MonteCarlo),
		scorer:       NewScorer(settings.Scoring),
	}
}

// Sections holds the computed parts of a report.
type Sections struct {
	KPIs          analytics.KPISet
	Decomposition analytics.Decomposition
	Forecast      analytics.ForecastResult
	Cycles        analytics.CycleSpectrum
	Changepoints  analytics.ChangepointSet
	Markov        analytics.MarkovModel
	MonteCarlo    analytics.MonteCarloResult
	Risk          analytics.RiskProfile
}

// UnavailableSections marks every section unavailable with the same reason.
func UnavailableSections(reason string) Sections {
	u := analytics.Unavailable(reason)
	return Sections{
		KPIs:          analytics.KPISet{Availability: u},
		Decomposition: analytics.Decomposition{Availability: u},
		Forecast:      analytics.ForecastResult{Availability: u},
		Cycles:        analytics.CycleSpectrum{Availability: u},
		Changepoints:  analytics.ChangepointSet{Availability: u},
		Markov:        analytics.MarkovModel{Availability: u},
		MonteCarlo:    analytics.MonteCarloResult{Availability: u},
		Risk:          analytics.RiskProfile{Availability: u},
	}
}

// Run computes all sections. The independent components run concurrently;
// the scorer runs last on their outputs. Markov transitions are learned
// from sequences when given (pooled branch mode), from the series otherwise.
func (p *Pipeline) Run(ctx context.Context, series analytics.DailySeries, seed *uint64, sequences ...[]int) (Sections, error) {
	if len(sequences) == 0 {
		sequences = [][]int{BinarySequence(series)}
	}

	var out Sections
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.Decomposition = Decompose(CalendarPercent(series))
		return nil
	})

	g.Go(func() error {
		out.Forecast = p.forecaster.Forecast(series)
		return nil
	})

	g.Go(func() error {
		out.Cycles = p.cycles.Detect(series)
		return nil
	})

	g.Go(func() error {
		out.Changepoints = p.changepoints.Detect(series)
		return nil
	})

	g.Go(func() error {
		out.Markov = p.markov.Fit(sequences...)
		return nil
	})

	g.Go(func() error {
		result, err := p.monteCarlo.Simulate(gCtx, series, seed)
		if err != nil {
			return err
		}
		out.MonteCarlo = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return Sections{}, err
	}
	// Components without cancellation points may finish after the deadline;
	// their results are discarded.
	if err := ctx.Err(); err != nil {
		return Sections{}, contextError(err)
	}

	out.KPIs = p.scorer.KPIs(series)
	out.Risk = p.scorer.Risk(RiskInputs{
		Series:       series,
		KPIs:         out.KPIs,
		Markov:       out.Markov,
		MonteCarlo:   out.MonteCarlo,
		Changepoints: out.Changepoints,
	})
	return out, nil
}
