package position

import (
	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Actor is the position actor of one squad: it runs the two mirrored FSMs
// (long/short) described in spec.md §4.3 and owns its Storage exclusively.
type Actor struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	symbol    model.Symbol
	timeframe model.Timeframe
	rng       model.RNG

	initialSize decimal.Decimal
	expiration  int64

	storage *Storage
}

// New constructs a position actor for one (symbol, timeframe) squad.
// initialSize is the default entry size used until the SOR reports actual
// fills; expiration overrides model.DefaultExpirationMs when non-zero.
func New(logger *zap.Logger, symbol model.Symbol, timeframe model.Timeframe, rng model.RNG, initialSize decimal.Decimal, expiration int64) *Actor {
	return &Actor{
		logger:      logger,
		symbol:      symbol,
		timeframe:   timeframe,
		rng:         rng,
		initialSize: initialSize,
		expiration:  expiration,
		storage:     NewStorage(),
	}
}

func (a *Actor) belongsToSquad(symbol model.Symbol, tf model.Timeframe) bool {
	return symbol.Name == a.symbol.Name && tf == a.timeframe
}

// Start subscribes to the actor's declared set of message types (spec.md
// §4.2).
func (a *Actor) Start(b *bus.Bus) {
	a.bus = b

	a.Subscribe(b, bus.KindEvent, "GoLongSignalReceived", func(msg bus.Message) bool {
		ev := msg.(message.GoLongSignalReceived)
		return a.belongsToSquad(ev.Signal.Symbol, ev.Signal.Timeframe)
	}, a.onSignal(model.PositionSideLong))

	a.Subscribe(b, bus.KindEvent, "GoShortSignalReceived", func(msg bus.Message) bool {
		ev := msg.(message.GoShortSignalReceived)
		return a.belongsToSquad(ev.Signal.Symbol, ev.Signal.Timeframe)
	}, a.onSignal(model.PositionSideShort))

	a.Subscribe(b, bus.KindEvent, "BrokerPositionOpened", func(msg bus.Message) bool {
		ev := msg.(message.BrokerPositionOpened)
		return a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onBrokerPositionOpened)

	a.Subscribe(b, bus.KindEvent, "BrokerPositionClosed", func(msg bus.Message) bool {
		ev := msg.(message.BrokerPositionClosed)
		return a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onBrokerPositionClosed)

	a.Subscribe(b, bus.KindEvent, "RiskThresholdBreached", func(msg bus.Message) bool {
		ev := msg.(message.RiskThresholdBreached)
		return a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onRiskThresholdBreached)

	a.Subscribe(b, bus.KindEvent, "BacktestEnded", func(msg bus.Message) bool {
		ev := msg.(message.BacktestEnded)
		return a.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, a.onBacktestEnded)
}

// Stop unsubscribes every handler this actor registered.
func (a *Actor) Stop(b *bus.Bus) {
	a.UnsubscribeAll(b)
}

// Storage exposes the actor's position storage for the squad's other
// actors to read when wiring a new squad (e.g. the risk actor needs to
// know the current position to advance its ladder).
func (a *Actor) Storage() *Storage { return a.storage }

// onSignal implements "IDLE -> OPENING" for one side: at most one position
// per (symbol, timeframe, side); duplicate signals are dropped (spec.md
// §4.3 Guards).
func (a *Actor) onSignal(side model.PositionSide) actor.Receive {
	return func(msg bus.Message) (any, error) {
		var signal model.Signal
		var signalRisk model.SignalRisk
		switch ev := msg.(type) {
		case message.GoLongSignalReceived:
			signal, signalRisk = ev.Signal, ev.SignalRisk
		case message.GoShortSignalReceived:
			signal, signalRisk = ev.Signal, ev.SignalRisk
		}

		if !a.storage.State(side).acceptsSignal() {
			a.logger.Debug("position: duplicate signal dropped", zap.String("symbol", a.symbol.Name), zap.String("side", string(side)))
			return nil, nil
		}

		pos := model.NewPosition(signal, signalRisk, a.initialSize, a.expiration, a.rng)
		a.storage.transition(side, StateOpening, pos, true)
		a.bus.Dispatch(message.PositionInitialized{Position: pos})
		return nil, nil
	}
}

// onBrokerPositionOpened implements "OPENING -> OPEN".
func (a *Actor) onBrokerPositionOpened(msg bus.Message) (any, error) {
	ev := msg.(message.BrokerPositionOpened)

	if a.storage.State(ev.Side) != StateOpening {
		return nil, nil
	}
	pos, ok := a.storage.Position(ev.Side)
	if !ok {
		return nil, nil
	}

	pos = pos.AppendOrder(ev.Order)
	a.storage.transition(ev.Side, StateOpen, pos, true)
	a.bus.Dispatch(message.PositionOpened{Position: pos})
	return nil, nil
}

// onBrokerPositionClosed implements "OPENING -> FAILED" (size 0 close) and
// "CLOSING -> CLOSED".
func (a *Actor) onBrokerPositionClosed(msg bus.Message) (any, error) {
	ev := msg.(message.BrokerPositionClosed)

	switch a.storage.State(ev.Side) {
	case StateOpening:
		if ev.Order.Size.IsZero() {
			a.storage.transition(ev.Side, StateFailed, model.Position{}, false)
		}
	case StateClosing:
		pos, ok := a.storage.Position(ev.Side)
		if !ok {
			return nil, nil
		}
		pos = pos.AppendOrder(ev.Order)
		a.storage.archiveClosed(ev.Side, pos)
		a.bus.Dispatch(message.PositionClosed{Position: pos})
	}
	return nil, nil
}

// onRiskThresholdBreached implements "OPEN -> CLOSING" on a risk breach.
func (a *Actor) onRiskThresholdBreached(msg bus.Message) (any, error) {
	ev := msg.(message.RiskThresholdBreached)

	if a.storage.State(ev.Side) != StateOpen {
		return nil, nil
	}
	pos, ok := a.storage.Position(ev.Side)
	if !ok {
		return nil, nil
	}

	a.storage.transition(ev.Side, StateClosing, pos, true)
	a.bus.Dispatch(message.PositionCloseRequested{Position: pos, ExitPrice: ev.ExitPrice})
	return nil, nil
}

// onBacktestEnded implements "OPEN -> CLOSING" for whichever side still has
// an open position when the data stream runs out (spec.md §4.3).
func (a *Actor) onBacktestEnded(msg bus.Message) (any, error) {
	ev := msg.(message.BacktestEnded)

	for _, side := range []model.PositionSide{model.PositionSideLong, model.PositionSideShort} {
		if a.storage.State(side) != StateOpen {
			continue
		}
		pos, ok := a.storage.Position(side)
		if !ok {
			continue
		}
		a.storage.transition(side, StateClosing, pos, true)
		a.bus.Dispatch(message.PositionCloseRequested{Position: pos, ExitPrice: ev.ExitPrice})
	}
	return nil, nil
}
