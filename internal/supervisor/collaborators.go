package supervisor

import "github.com/atlas-desktop/squad-engine/pkg/model"

// Candidate names one (symbol, timeframe, strategy) genome, the unit the
// optimizer and strategy storage rank on (original_source/system/system.py's
// bare tuple[Symbol, Timeframe, Strategy]).
type Candidate struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Strategy  model.Strategy
}

// Generator seeds a fresh population of candidates from the tradable
// symbols. The genetic strategy generator's internals are out of scope
// (spec.md §1: "the genetic strategy generator, treated as a pure function
// producing signals/scores"); this is only its inbound contract, grounded
// on original_source/system/system.py's
// strategy_generator_factory.create(...).init().
type Generator interface {
	Init(symbols []model.Symbol) []Candidate
}

// Optimizer evolves a seeded population across BACKTEST/OPTIMIZATION
// cycles, mirroring original_source/system/system.py's self.optimizer
// (population, init(), optimize(), done).
type Optimizer interface {
	Seed(population []Candidate)
	Population() []Candidate
	Optimize() error
	Done() bool
}
