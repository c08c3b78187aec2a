package executor

import (
	"context"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"go.uber.org/zap"
)

// Live is the live-trading executor actor for one squad (C5). Unlike
// Paper, it never simulates a fill itself: it asks the Smart Order Router
// to place/close the broker-side order, then reconciles against the
// router's GetOpenPosition/GetClosePosition queries to learn the actual
// fill (spec.md §4.5, §6.5).
type Live struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	symbol    model.Symbol
	timeframe model.Timeframe

	// queryTimeout bounds each command/query round-trip to the router.
	queryTimeout time.Duration
}

// NewLive constructs a live executor for one (symbol, timeframe) squad.
func NewLive(logger *zap.Logger, symbol model.Symbol, timeframe model.Timeframe) *Live {
	return &Live{logger: logger, symbol: symbol, timeframe: timeframe, queryTimeout: 30 * time.Second}
}

func (l *Live) belongsToSquad(symbol model.Symbol, tf model.Timeframe) bool {
	return symbol.Name == l.symbol.Name && tf == l.timeframe
}

// Start subscribes to the squad's position lifecycle events (spec.md §4.2).
func (l *Live) Start(b *bus.Bus) {
	l.bus = b

	l.Subscribe(b, bus.KindEvent, "PositionInitialized", func(msg bus.Message) bool {
		ev := msg.(message.PositionInitialized)
		return l.belongsToSquad(ev.Position.Signal.Symbol, ev.Position.Signal.Timeframe)
	}, l.onPositionInitialized)

	l.Subscribe(b, bus.KindEvent, "PositionCloseRequested", func(msg bus.Message) bool {
		ev := msg.(message.PositionCloseRequested)
		return l.belongsToSquad(ev.Position.Signal.Symbol, ev.Position.Signal.Timeframe)
	}, l.onPositionCloseRequested)
}

// Stop unsubscribes every handler this actor registered.
func (l *Live) Stop(b *bus.Bus) { l.UnsubscribeAll(b) }

func (l *Live) onPositionInitialized(msg bus.Message) (any, error) {
	ev := msg.(message.PositionInitialized)
	pos := ev.Position
	side := pos.Side()

	ctx, cancel := context.WithTimeout(context.Background(), l.queryTimeout)
	defer cancel()

	if err := l.bus.Execute(ctx, message.OpenPosition{Position: pos}); err != nil {
		l.logger.Error("live executor: open position command failed", zap.Error(err))
		l.dispatchFailedOpen(side)
		return nil, nil
	}

	result, err := l.bus.Query(ctx, message.GetOpenPosition{Symbol: l.symbol, Side: side})
	if err != nil {
		l.logger.Error("live executor: reconcile open position failed", zap.Error(err))
		l.dispatchFailedOpen(side)
		return nil, nil
	}

	order, ok := result.(model.Order)
	if !ok || order.Status != model.OrderStatusExecuted {
		l.dispatchFailedOpen(side)
		return nil, nil
	}

	if !pos.AppendOrder(order).IsValid() {
		l.logger.Warn("live executor: entry fill violates position invariant, failing open",
			zap.String("symbol", l.symbol.Name), zap.String("side", string(side)))
		l.dispatchFailedOpen(side)
		return nil, nil
	}

	l.bus.Dispatch(message.BrokerPositionOpened{Symbol: l.symbol, Timeframe: l.timeframe, Side: side, Order: order})
	return nil, nil
}

func (l *Live) onPositionCloseRequested(msg bus.Message) (any, error) {
	ev := msg.(message.PositionCloseRequested)
	pos := ev.Position
	side := pos.Side()

	ctx, cancel := context.WithTimeout(context.Background(), l.queryTimeout)
	defer cancel()

	if err := l.bus.Execute(ctx, message.ClosePosition{Position: pos, ExitPrice: ev.ExitPrice}); err != nil {
		l.logger.Error("live executor: close position command failed", zap.Error(err))
		l.dispatchFailedClose(side)
		return nil, nil
	}

	result, err := l.bus.Query(ctx, message.GetClosePosition{Symbol: l.symbol, Side: side})
	if err != nil {
		l.logger.Error("live executor: reconcile close position failed", zap.Error(err))
		l.dispatchFailedClose(side)
		return nil, nil
	}

	order, ok := result.(model.Order)
	if !ok || order.Status != model.OrderStatusClosed {
		l.dispatchFailedClose(side)
		return nil, nil
	}

	l.bus.Dispatch(message.BrokerPositionClosed{Symbol: l.symbol, Timeframe: l.timeframe, Side: side, Order: order})
	return nil, nil
}

// dispatchFailedOpen reports a failed open the same way the position actor's
// CLOSING -> CLOSED transition does: a BrokerPositionClosed with a zero-size
// order, which onBrokerPositionClosed recognizes while still OPENING
// (spec.md §4.3 OPENING -> FAILED).
func (l *Live) dispatchFailedOpen(side model.PositionSide) {
	l.bus.Dispatch(message.BrokerPositionClosed{
		Symbol: l.symbol, Timeframe: l.timeframe, Side: side,
		Order: model.Order{Status: model.OrderStatusFailed, Type: model.OrderTypeMarket},
	})
}

func (l *Live) dispatchFailedClose(side model.PositionSide) {
	l.bus.Dispatch(message.BrokerPositionClosed{
		Symbol: l.symbol, Timeframe: l.timeframe, Side: side,
		Order: model.Order{Status: model.OrderStatusFailed, Type: model.OrderTypeMarket},
	})
}
