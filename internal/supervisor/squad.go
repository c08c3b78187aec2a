package supervisor

import (
	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/executor"
	"github.com/atlas-desktop/squad-engine/internal/position"
	"github.com/atlas-desktop/squad-engine/internal/risk"
	"github.com/atlas-desktop/squad-engine/internal/signal"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Squad bundles one (symbol, timeframe, strategy) genome's four actors,
// grounded on original_source/system/squad.py: Start/Stop fan out to every
// member in the order squad_factory.create_squad assembles them.
type Squad struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Strategy  model.Strategy

	actors []actor.Actor
}

// Start starts every actor in the squad.
func (s *Squad) Start(b *bus.Bus) {
	for _, a := range s.actors {
		a.Start(b)
	}
}

// Stop stops every actor in the squad, in the same order they were added.
func (s *Squad) Stop(b *bus.Bus) {
	for _, a := range s.actors {
		a.Stop(b)
	}
}

// SignalGeneratorFactory turns an opaque strategy genome into the
// indicator math a signal actor wraps. Producing that math is the
// (out-of-scope) strategy generator's job; this is only the seam the
// supervisor needs to assemble a squad.
type SignalGeneratorFactory interface {
	Create(strategy model.Strategy) signal.Generator
}

// SquadFactory builds a Squad from a candidate genome, grounded on
// original_source/system/squad_factory.py's SquadFactory.create_squad.
type SquadFactory struct {
	Logger      *zap.Logger
	Generators  SignalGeneratorFactory
	RNG         model.RNG
	InitialSize decimal.Decimal
	Expiration  int64
	TA          model.TechAnalysis
}

// CreateSquad mirrors create_squad(symbol, timeframe, strategy, is_live):
// one signal/position/risk actor plus a live-or-paper executor.
func (f *SquadFactory) CreateSquad(symbol model.Symbol, timeframe model.Timeframe, strategy model.Strategy, isLive bool) *Squad {
	gen := f.Generators.Create(strategy)
	signalActor := signal.New(f.Logger, symbol, timeframe, gen)
	positionActor := position.New(f.Logger, symbol, timeframe, f.RNG, f.InitialSize, f.Expiration)
	riskActor := risk.New(f.Logger, symbol, timeframe, positionActor.Storage(), f.TA)

	var executorActor actor.Actor
	if isLive {
		executorActor = executor.NewLive(f.Logger, symbol, timeframe)
	} else {
		executorActor = executor.NewPaper(f.Logger, symbol, timeframe)
	}

	return &Squad{
		Symbol:    symbol,
		Timeframe: timeframe,
		Strategy:  strategy,
		actors:    []actor.Actor{signalActor, positionActor, riskActor, executorActor},
	}
}
