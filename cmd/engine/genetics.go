package main

import (
	"github.com/atlas-desktop/squad-engine/internal/signal"
	"github.com/atlas-desktop/squad-engine/internal/supervisor"
	"github.com/atlas-desktop/squad-engine/pkg/model"
)

// The genetic strategy generator/optimizer is out of scope for this core
// (spec.md §1: "treated as a pure function producing signals/scores"); only
// the supervisor's inbound seam for it (supervisor.Generator/Optimizer,
// supervisor.SignalGeneratorFactory) is implemented there. The types below
// are the smallest stand-ins that let the process boot end to end; a real
// deployment replaces all three with its actual genome search.

// seedGenerator turns every tradable symbol into one fixed-timeframe,
// fixed-genome candidate. It never mutates a population beyond that
// one-shot seed.
type seedGenerator struct {
	timeframe model.Timeframe
	genome    string
}

func (g seedGenerator) Init(symbols []model.Symbol) []supervisor.Candidate {
	candidates := make([]supervisor.Candidate, len(symbols))
	for i, s := range symbols {
		candidates[i] = supervisor.Candidate{
			Symbol: s, Timeframe: g.timeframe, Strategy: model.NewStrategy(g.genome),
		}
	}
	return candidates
}

// singlePassOptimizer never evolves its seeded population; Optimize is a
// no-op and Done reports true immediately, so the first OPTIMIZATION pass
// that finds surviving strategies goes straight to TRADING; a pass with no
// survivors still sends the FSM back to GENERATE.
type singlePassOptimizer struct {
	population []supervisor.Candidate
}

func (o *singlePassOptimizer) Seed(population []supervisor.Candidate) { o.population = population }
func (o *singlePassOptimizer) Population() []supervisor.Candidate     { return o.population }
func (o *singlePassOptimizer) Optimize() error                       { return nil }
func (o *singlePassOptimizer) Done() bool                             { return true }

// noOpSignal never fires; it is the default strategy genome's indicator
// math until a real strategy generator is wired.
type noOpSignal struct{}

func (noOpSignal) OnBar(model.OHLCV) (*model.Signal, *model.SignalRisk, error) { return nil, nil, nil }

type noOpSignalGeneratorFactory struct{}

func (noOpSignalGeneratorFactory) Create(model.Strategy) signal.Generator { return noOpSignal{} }
