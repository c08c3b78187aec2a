// Package risk implements the risk actor: it watches every closed bar for
// a squad's open positions, advances the break-even ladder, and emits
// RiskThresholdBreached once a position's risk type turns non-NONE
// (spec.md §4.4).
package risk

import (
	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/internal/position"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"go.uber.org/zap"
)

// Actor is the risk actor of one squad. It holds no position state of its
// own: the position actor's Storage is the single source of truth, and
// this actor only reads from it and writes back through it (spec.md §3
// ownership: the risk actor advances position_risk, it does not own it).
type Actor struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	symbol    model.Symbol
	timeframe model.Timeframe

	positions *position.Storage
	ta        model.TechAnalysis
}

// New constructs a risk actor bound to the position actor's storage for
// the same squad.
func New(logger *zap.Logger, symbol model.Symbol, timeframe model.Timeframe, positions *position.Storage, ta model.TechAnalysis) *Actor {
	if ta == nil {
		ta = model.NoOpTechAnalysis{}
	}
	return &Actor{logger: logger, symbol: symbol, timeframe: timeframe, positions: positions, ta: ta}
}

func (a *Actor) belongsToSquad(symbol model.Symbol, tf model.Timeframe) bool {
	return symbol.Name == a.symbol.Name && tf == a.timeframe
}

// Start subscribes to market data for this squad (spec.md §4.2, §4.4).
func (a *Actor) Start(b *bus.Bus) {
	a.bus = b
	a.Subscribe(b, bus.KindEvent, "NewMarketDataReceived", func(msg bus.Message) bool {
		ev := msg.(message.NewMarketDataReceived)
		return ev.Closed && a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onBar)
}

// Stop unsubscribes this actor's handlers.
func (a *Actor) Stop(b *bus.Bus) {
	a.UnsubscribeAll(b)
}

// onBar advances every open position (long and short) one bar and emits a
// breach event for each one whose risk type just turned non-NONE (spec.md
// §4.4 steps 1-5).
func (a *Actor) onBar(msg bus.Message) (any, error) {
	ev := msg.(message.NewMarketDataReceived)

	for _, side := range []model.PositionSide{model.PositionSideLong, model.PositionSideShort} {
		if a.positions.State(side) != position.StateOpen {
			continue
		}
		pos, ok := a.positions.Position(side)
		if !ok {
			continue
		}

		next, breached := pos.Next(ev.OHLCV, a.ta, a.symbol.PricePrecision)
		a.positions.SetPosition(side, next)

		if breached {
			a.bus.Dispatch(message.RiskThresholdBreached{
				Symbol:    a.symbol,
				Timeframe: a.timeframe,
				Side:      side,
				RiskType:  next.PositionRisk.Type,
				ExitPrice: next.PositionRisk.ExitPrice(next.Side(), next.TakeProfit(), next.StopLoss()),
			})
		}
	}
	return nil, nil
}
