package executor

import (
	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// pendingFill is an entry/exit request parked until a bar closes after the
// request arrived ("the next available bar", spec.md §4.5).
type pendingFill struct {
	position  model.Position
	exitPrice decimal.Decimal // the risk actor's requested exit price; zero for entries
}

// Paper is the paper-trading executor actor for one squad (C5). It holds no
// broker connection: fills are simulated against the squad's own market-data
// stream using the intrabar policy in fill.go.
type Paper struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	symbol    model.Symbol
	timeframe model.Timeframe

	lastBar model.OHLCV
	hasBar  bool

	pendingEntry map[model.PositionSide]pendingFill
	pendingExit  map[model.PositionSide]pendingFill
}

// NewPaper constructs a paper executor for one (symbol, timeframe) squad.
func NewPaper(logger *zap.Logger, symbol model.Symbol, timeframe model.Timeframe) *Paper {
	return &Paper{
		logger:       logger,
		symbol:       symbol,
		timeframe:    timeframe,
		pendingEntry: make(map[model.PositionSide]pendingFill),
		pendingExit:  make(map[model.PositionSide]pendingFill),
	}
}

func (p *Paper) belongsToSquad(symbol model.Symbol, tf model.Timeframe) bool {
	return symbol.Name == p.symbol.Name && tf == p.timeframe
}

// Start subscribes to the squad's market data and position lifecycle events
// (spec.md §4.2, §4.5).
func (p *Paper) Start(b *bus.Bus) {
	p.bus = b

	p.Subscribe(b, bus.KindEvent, "NewMarketDataReceived", func(msg bus.Message) bool {
		ev := msg.(message.NewMarketDataReceived)
		return ev.Closed && p.belongsToSquad(ev.Symbol, ev.Timeframe)
	}, p.onBar)

	p.Subscribe(b, bus.KindEvent, "PositionInitialized", func(msg bus.Message) bool {
		ev := msg.(message.PositionInitialized)
		return p.belongsToSquad(ev.Position.Signal.Symbol, ev.Position.Signal.Timeframe)
	}, p.onPositionInitialized)

	p.Subscribe(b, bus.KindEvent, "PositionCloseRequested", func(msg bus.Message) bool {
		ev := msg.(message.PositionCloseRequested)
		return p.belongsToSquad(ev.Position.Signal.Symbol, ev.Position.Signal.Timeframe)
	}, p.onPositionCloseRequested)
}

// Stop unsubscribes every handler this actor registered.
func (p *Paper) Stop(b *bus.Bus) { p.UnsubscribeAll(b) }

func (p *Paper) onBar(msg bus.Message) (any, error) {
	ev := msg.(message.NewMarketDataReceived)
	p.lastBar = ev.OHLCV
	p.hasBar = true

	for side, pending := range p.pendingEntry {
		p.fillEntryRequest(side, pending)
		delete(p.pendingEntry, side)
	}
	for side, pending := range p.pendingExit {
		p.fillExitRequest(side, pending)
		delete(p.pendingExit, side)
	}
	return nil, nil
}

// onPositionInitialized parks the entry request until the next bar closes;
// if a bar is already available it fills immediately on this one (spec.md
// §4.5 "the next available bar" — the bar just seen counts if none has been
// consumed by this request yet).
func (p *Paper) onPositionInitialized(msg bus.Message) (any, error) {
	ev := msg.(message.PositionInitialized)
	side := ev.Position.Side()

	if p.hasBar {
		p.fillEntryRequest(side, pendingFill{position: ev.Position})
		return nil, nil
	}
	p.pendingEntry[side] = pendingFill{position: ev.Position}
	return nil, nil
}

func (p *Paper) onPositionCloseRequested(msg bus.Message) (any, error) {
	ev := msg.(message.PositionCloseRequested)
	side := ev.Position.Side()

	pending := pendingFill{position: ev.Position, exitPrice: ev.ExitPrice}
	if p.hasBar {
		p.fillExitRequest(side, pending)
		return nil, nil
	}
	p.pendingExit[side] = pending
	return nil, nil
}

// fillEntryRequest simulates the entry fill and appends it to the position
// under a validity check: if the resulting position would violate its core
// invariant (e.g. take-profit on the wrong side of stop-loss), the executor
// reports a failed open instead of opening it, matching the original paper
// executor's _execute_order (fills the entry, then checks is_valid before
// acknowledging the open).
func (p *Paper) fillEntryRequest(side model.PositionSide, pending pendingFill) {
	pos := pending.position
	price := fillEntry(side, pos.Signal.Entry, p.lastBar)
	size := entrySize(p.symbol, pos.InitialSize)
	order := model.Order{
		Status: model.OrderStatusExecuted,
		Type:   model.OrderTypePaper,
		Price:  price,
		Size:   size,
		Fee:    fee(size, price, feeRate(p.symbol, model.OrderTypePaper)),
	}

	if !pos.AppendOrder(order).IsValid() {
		p.logger.Warn("paper executor: entry fill violates position invariant, failing open",
			zap.String("symbol", p.symbol.Name), zap.String("side", string(side)))
		p.bus.Dispatch(message.BrokerPositionClosed{
			Symbol: p.symbol, Timeframe: p.timeframe, Side: side,
			Order: model.Order{Status: model.OrderStatusFailed, Type: model.OrderTypePaper},
		})
		return
	}

	p.bus.Dispatch(message.BrokerPositionOpened{
		Symbol: p.symbol, Timeframe: p.timeframe, Side: side, Order: order,
	})
}

func (p *Paper) fillExitRequest(side model.PositionSide, pending pendingFill) {
	pos := pending.position
	price := fillExit(side, pending.exitPrice, pos.TakeProfit(), pos.StopLoss(), p.lastBar)
	size := pos.Size()
	order := model.Order{
		Status: model.OrderStatusClosed,
		Type:   model.OrderTypePaper,
		Price:  price,
		Size:   size,
		Fee:    fee(size, price, feeRate(p.symbol, model.OrderTypePaper)),
	}
	p.bus.Dispatch(message.BrokerPositionClosed{
		Symbol: p.symbol, Timeframe: p.timeframe, Side: side, Order: order,
	})
}
