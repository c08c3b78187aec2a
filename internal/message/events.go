// Package message defines the concrete Event, Command and Query payloads
// exchanged over the bus (spec.md §3, §4.3, §4.6). Each type implements
// bus.Message. Squad traffic uses the squad's (symbol, timeframe) pair as
// Meta().Group so it serializes on one worker (spec.md §5). The executor's
// position queries group by symbol alone, supervisor-level commands and
// queries use a fixed group per collaborator ("exchange", "account", ...),
// and EventEnded has none.
package message

import (
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriorityDefault is the priority used by ordinary market-data and
// lifecycle traffic; lower numbers run first within a worker.
const (
	PriorityDefault = 5
	PriorityHigh    = 1
)

func squadGroup(symbol model.Symbol, tf model.Timeframe) string {
	return symbol.Name + "|" + string(tf)
}

// NewMarketDataReceived carries one closed (or still-forming) bar from the
// websocket feed or datasource (spec.md §6 "Websocket feed").
type NewMarketDataReceived struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	OHLCV     model.OHLCV
	Closed    bool
}

func (e NewMarketDataReceived) TypeName() string { return "NewMarketDataReceived" }
func (e NewMarketDataReceived) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityDefault,
		Group:    squadGroup(e.Symbol, e.Timeframe),
		// Bars sharing a timestamp for an unchanged candle coalesce
		// deliberately (spec.md §4.1).
		Key: squadGroup(e.Symbol, e.Timeframe) + "|bar|" + itoa64(e.OHLCV.Timestamp),
	}
}

// GoLongSignalReceived / GoShortSignalReceived carry a freshly produced
// signal from the signal actor to the position actor (spec.md §4.3).
type GoLongSignalReceived struct {
	Signal     model.Signal
	SignalRisk model.SignalRisk
}

func (e GoLongSignalReceived) TypeName() string { return "GoLongSignalReceived" }
func (e GoLongSignalReceived) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Group: squadGroup(e.Signal.Symbol, e.Signal.Timeframe), Key: e.Signal.Key()}
}

type GoShortSignalReceived struct {
	Signal     model.Signal
	SignalRisk model.SignalRisk
}

func (e GoShortSignalReceived) TypeName() string { return "GoShortSignalReceived" }
func (e GoShortSignalReceived) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Group: squadGroup(e.Signal.Symbol, e.Signal.Timeframe), Key: e.Signal.Key()}
}

// PositionInitialized is emitted by the position actor the instant a
// position is created from a signal, before any broker round-trip
// (spec.md §4.3 IDLE -> OPENING).
type PositionInitialized struct {
	Position model.Position
}

func (e PositionInitialized) TypeName() string { return "PositionInitialized" }
func (e PositionInitialized) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(e.Position.Signal.Symbol, e.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// PositionOpened is emitted once the broker has confirmed the entry fill
// (spec.md §4.3 OPENING -> OPEN).
type PositionOpened struct {
	Position model.Position
}

func (e PositionOpened) TypeName() string { return "PositionOpened" }
func (e PositionOpened) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(e.Position.Signal.Symbol, e.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// PositionCloseRequested asks the executor to close a position at
// exitPrice (spec.md §4.3 OPEN -> CLOSING).
type PositionCloseRequested struct {
	Position  model.Position
	ExitPrice decimal.Decimal
}

func (e PositionCloseRequested) TypeName() string { return "PositionCloseRequested" }
func (e PositionCloseRequested) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(e.Position.Signal.Symbol, e.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// PositionClosed finalizes a position (spec.md §4.3 CLOSING -> CLOSED).
type PositionClosed struct {
	Position model.Position
}

func (e PositionClosed) TypeName() string { return "PositionClosed" }
func (e PositionClosed) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(e.Position.Signal.Symbol, e.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// BrokerPositionOpened / BrokerPositionClosed are the executor's broker
// acknowledgments. A failed open is reported as a BrokerPositionClosed with
// a zero-size FAILED order while the position is still OPENING (spec.md
// §4.3 OPENING -> FAILED) — the same message the CLOSING -> CLOSED
// transition uses, so the position actor only needs one handler per state.
type BrokerPositionOpened struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Side      model.PositionSide
	Order     model.Order
}

func (e BrokerPositionOpened) TypeName() string { return "BrokerPositionOpened" }
func (e BrokerPositionOpened) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Group: squadGroup(e.Symbol, e.Timeframe), Key: uuid.NewString()}
}

type BrokerPositionClosed struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Side      model.PositionSide
	Order     model.Order
}

func (e BrokerPositionClosed) TypeName() string { return "BrokerPositionClosed" }
func (e BrokerPositionClosed) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Group: squadGroup(e.Symbol, e.Timeframe), Key: uuid.NewString()}
}

// RiskThresholdBreached is emitted by the risk actor once a bar's
// assessment turns non-NONE (spec.md §4.4 step 5).
type RiskThresholdBreached struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Side      model.PositionSide
	RiskType  model.PositionRiskType
	ExitPrice decimal.Decimal
}

func (e RiskThresholdBreached) TypeName() string { return "RiskThresholdBreached" }
func (e RiskThresholdBreached) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Group: squadGroup(e.Symbol, e.Timeframe), Key: uuid.NewString()}
}

// BacktestEnded signals a backtest run's data exhaustion; any still-open
// position must close at the event's bar (spec.md §4.3 OPEN -> CLOSING).
type BacktestEnded struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	ExitPrice decimal.Decimal
}

func (e BacktestEnded) TypeName() string { return "BacktestEnded" }
func (e BacktestEnded) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityDefault, Group: squadGroup(e.Symbol, e.Timeframe), Key: uuid.NewString()}
}

// EventEnded is a bus-level end-of-run event type. Bus.Stop does not send
// it (Stop closes the pools directly), and no actor in this module
// subscribes to it.
type EventEnded struct{}

func (e EventEnded) TypeName() string { return "EventEnded" }
func (e EventEnded) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityHigh, Key: uuid.NewString()}
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
