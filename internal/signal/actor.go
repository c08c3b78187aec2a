// Package signal wraps a strategy Generator collaborator (C9) and turns
// its per-bar output into GoLongSignalReceived/GoShortSignalReceived
// events, grounded on original_source/strategy/engulfing_zlema_strategy.py's
// shape and the teacher's internal/strategy.Strategy interface (OnBar).
package signal

import (
	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"go.uber.org/zap"
)

// Generator is the strategy collaborator's inbound contract: one call per
// closed bar, returning a signal only when the strategy fires.
type Generator interface {
	OnBar(ohlcv model.OHLCV) (*model.Signal, *model.SignalRisk, error)
}

// Actor adapts one Generator into the squad's event stream (spec.md §4.3:
// the signal actor is upstream of, and decoupled from, the position actor).
type Actor struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	symbol    model.Symbol
	timeframe model.Timeframe
	generator Generator
}

// New constructs a signal actor for one (symbol, timeframe) squad.
func New(logger *zap.Logger, symbol model.Symbol, timeframe model.Timeframe, generator Generator) *Actor {
	return &Actor{logger: logger, symbol: symbol, timeframe: timeframe, generator: generator}
}

func (a *Actor) belongsToSquad(symbol model.Symbol, tf model.Timeframe) bool {
	return symbol.Name == a.symbol.Name && tf == a.timeframe
}

// Start subscribes to this squad's closed bars (spec.md §4.2, §4.3).
func (a *Actor) Start(b *bus.Bus) {
	a.bus = b
	a.Subscribe(b, bus.KindEvent, "NewMarketDataReceived", func(msg bus.Message) bool {
		ev := msg.(message.NewMarketDataReceived)
		return ev.Closed && a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onBar)
}

// Stop unsubscribes every handler this actor registered.
func (a *Actor) Stop(b *bus.Bus) { a.UnsubscribeAll(b) }

func (a *Actor) onBar(msg bus.Message) (any, error) {
	ev := msg.(message.NewMarketDataReceived)

	sig, risk, err := a.generator.OnBar(ev.OHLCV)
	if err != nil {
		a.logger.Error("signal: generator failed", zap.String("symbol", a.symbol.Name), zap.Error(err))
		return nil, nil
	}
	if sig == nil {
		return nil, nil
	}
	if risk == nil {
		risk = &model.SignalRisk{}
	}

	switch sig.Side {
	case model.SignalSideBuy:
		a.bus.Dispatch(message.GoLongSignalReceived{Signal: *sig, SignalRisk: *risk})
	case model.SignalSideSell:
		a.bus.Dispatch(message.GoShortSignalReceived{Signal: *sig, SignalRisk: *risk})
	}
	return nil, nil
}
