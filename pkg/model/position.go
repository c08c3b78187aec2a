package model

import "github.com/shopspring/decimal"

// DefaultExpirationMs is the position's default lifetime before its risk
// type is forced to EXPIRED (spec.md §3: "900_000 = 15 min").
const DefaultExpirationMs int64 = 900_000

// Position is the immutable value at the center of a squad: a signal plus
// its accumulating order book and break-even ladder state. Every mutation is
// expressed as a method returning a new Position; the owning actor reassigns
// its field, never mutates in place (spec.md §9).
type Position struct {
	Signal       Signal
	SignalRisk   SignalRisk
	PositionRisk PositionRisk
	Orders       []Order

	InitialSize decimal.Decimal
	Expiration  int64

	// F1, F2, F3 are the break-even factors sampled once at construction,
	// f1 < f2 < f3.
	F1, F2, F3 decimal.Decimal

	// CurrSL is the break-even ladder's running stop-loss. It starts at
	// Signal.StopLoss and only ever tightens via Next.
	CurrSL decimal.Decimal

	OverrideTP    decimal.Decimal
	HasOverrideTP bool
	OverrideSL    decimal.Decimal
	HasOverrideSL bool

	// OpenTimestamp anchors the expiration clock. It is the signal bar's
	// timestamp: the only timestamp available at construction time, since
	// Order carries none (spec.md §3 Order shape).
	OpenTimestamp int64
}

// NewPosition creates a position from a freshly received signal. rng is
// consulted exactly once, for the three break-even factors.
func NewPosition(signal Signal, signalRisk SignalRisk, initialSize decimal.Decimal, expiration int64, rng RNG) Position {
	if expiration <= 0 {
		expiration = DefaultExpirationMs
	}
	f1, f2, f3 := SampleBreakEvenFactors(rng)
	return Position{
		Signal:        signal,
		SignalRisk:    signalRisk,
		PositionRisk:  NewPositionRisk(signal.OHLCV),
		InitialSize:   initialSize,
		Expiration:    expiration,
		F1:            f1,
		F2:            f2,
		F3:            f3,
		CurrSL:        signal.StopLoss,
		OpenTimestamp: signal.OHLCV.Timestamp,
	}
}

// Side is the position's direction, derived from the originating signal.
func (p Position) Side() PositionSide { return PositionSideFromSignal(p.Signal.Side) }

// WithOverrideTP/WithOverrideSL record a manual override requested out of
// band (e.g. an operator command); they take precedence over every other
// source of TP/SL.
func (p Position) WithOverrideTP(tp decimal.Decimal) Position {
	p.OverrideTP, p.HasOverrideTP = tp, true
	return p
}

func (p Position) WithOverrideSL(sl decimal.Decimal) Position {
	p.OverrideSL, p.HasOverrideSL = sl, true
	p.CurrSL = sl
	return p
}

// AppendOrder returns a new position with o appended to the order book.
func (p Position) AppendOrder(o Order) Position {
	orders := make([]Order, len(p.Orders)+1)
	copy(orders, p.Orders)
	orders[len(p.Orders)] = o
	p.Orders = orders
	return p
}

func (p Position) ordersWithStatus(status OrderStatus) []Order {
	var out []Order
	for _, o := range p.Orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

func averagePrice(orders []Order) decimal.Decimal {
	return average(orders, func(o Order) decimal.Decimal { return o.Price })
}

func averageSize(orders []Order) decimal.Decimal {
	return average(orders, func(o Order) decimal.Decimal { return o.Size })
}

func average(orders []Order, field func(Order) decimal.Decimal) decimal.Decimal {
	if len(orders) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(field(o))
	}
	return sum.Div(decimal.NewFromInt(int64(len(orders))))
}

// openOrders/closedOrders/failedOrders partition the order book by status:
// EXECUTED orders are the entry fills, CLOSED orders the exit fills, FAILED
// orders mark an aborted attempt (spec.md §3).
func (p Position) openOrders() []Order   { return p.ordersWithStatus(OrderStatusExecuted) }
func (p Position) closedOrders() []Order { return p.ordersWithStatus(OrderStatusClosed) }
func (p Position) failedOrders() []Order { return p.ordersWithStatus(OrderStatusFailed) }

// Size is the average size of the open orders, or of the closed orders once
// the position has none open.
func (p Position) Size() decimal.Decimal {
	if open := p.openOrders(); len(open) > 0 {
		return averageSize(open)
	}
	return averageSize(p.closedOrders())
}

// EntryPrice is the average fill price of the open (entry) orders.
func (p Position) EntryPrice() decimal.Decimal { return averagePrice(p.openOrders()) }

// ExitPrice is the average fill price of the closed (exit) orders.
func (p Position) ExitPrice() decimal.Decimal { return averagePrice(p.closedOrders()) }

// Closed reports whether the position has reached a terminal state: any
// failed order, or the closed size has fully unwound the open size.
func (p Position) Closed() bool {
	if len(p.failedOrders()) > 0 {
		return true
	}
	closed := p.closedOrders()
	if len(closed) == 0 {
		return false
	}
	return averageSize(p.openOrders()).Sub(averageSize(closed)).Sign() <= 0
}

// sideSign is +1 for LONG, -1 for SHORT; used to express the mirrored ladder
// math and PnL sign in one formula.
func (p Position) sideSign() decimal.Decimal {
	if p.Side() == PositionSideLong {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// PnL is the signed profit of a closed position: positive means favorable.
func (p Position) PnL() decimal.Decimal {
	diff := p.ExitPrice().Sub(p.EntryPrice())
	return p.sideSign().Mul(diff).Mul(p.Size())
}

// HasBreakEven reports whether the current stop-loss has moved to or past
// entry in the favorable direction (spec.md §3, invariant 2 of §8).
func (p Position) HasBreakEven() bool {
	return p.sideSign().Mul(p.StopLoss().Sub(p.EntryPrice())).Sign() >= 0
}

// StopLoss is the position's effective stop-loss: a manual override wins,
// otherwise the break-even ladder's running value.
func (p Position) StopLoss() decimal.Decimal {
	if p.HasOverrideSL {
		return p.OverrideSL
	}
	return p.CurrSL
}

// TakeProfit is the position's effective take-profit: a manual override
// wins, then the signal's own suggested TP, then the break-even ladder's
// own top rung T3 = entry ± f3*|entry-initial_sl| — tying the default TP to
// the same ladder the position tightens its stop against, matching the
// original portfolio's third_take_profit default.
func (p Position) TakeProfit() decimal.Decimal {
	if p.HasOverrideTP {
		return p.OverrideTP
	}
	if p.SignalRisk.HasTP {
		return p.SignalRisk.TP
	}
	entry := p.Signal.Entry
	initialRisk := entry.Sub(p.Signal.StopLoss).Abs()
	return p.breakEvenTarget(entry, initialRisk, p.F3)
}

// IsValid checks the position's core invariant (spec.md §4.4): while open,
// take_profit must stay on the correct side of stop_loss; once closed, the
// position must have a non-zero Size() and have actually advanced past
// its open timestamp.
func (p Position) IsValid() bool {
	if !p.Closed() {
		if p.Side() == PositionSideLong {
			return p.TakeProfit().GreaterThan(p.StopLoss())
		}
		return p.TakeProfit().LessThan(p.StopLoss())
	}
	return !p.Size().IsZero() && p.OpenTimestamp < p.PositionRisk.LastBar.Timestamp
}

// breakEvenTarget computes Tk = entry ± fk*|entry-initial_sl| (+ for LONG,
// - for SHORT), per spec.md §4.4.
func (p Position) breakEvenTarget(entry, initialRisk, fk decimal.Decimal) decimal.Decimal {
	delta := fk.Mul(initialRisk)
	if p.Side() == PositionSideLong {
		return entry.Add(delta)
	}
	return entry.Sub(delta)
}

// tighten applies the ladder's monotonic direction: LONG only ever raises
// the stop, SHORT only ever lowers it.
func (p Position) tighten(sl, candidate decimal.Decimal) decimal.Decimal {
	if p.Side() == PositionSideLong {
		if candidate.GreaterThan(sl) {
			return candidate
		}
		return sl
	}
	if candidate.LessThan(sl) {
		return candidate
	}
	return sl
}

// crossed reports whether price has reached level in the position's
// favorable direction: >= for LONG, <= for SHORT.
func (p Position) crossed(price, level decimal.Decimal) bool {
	if p.Side() == PositionSideLong {
		return price.GreaterThanOrEqual(level)
	}
	return price.LessThanOrEqual(level)
}

// Next advances the position by one closed bar: it updates PositionRisk,
// runs the break-even ladder to produce the next stop-loss, optionally
// tightens it further via the TA collaborator's trailing floor, and
// reassesses the risk type against the bar just closed. Bars at or before
// the last-seen timestamp are ignored (spec.md §4.4 preamble). The returned
// bool reports whether the risk type just became non-NONE on this bar.
func (p Position) Next(bar OHLCV, ta TechAnalysis, pricePrecision int32) (Position, bool) {
	if bar.Timestamp <= p.PositionRisk.LastBar.Timestamp {
		return p, false
	}

	entry := p.Signal.Entry
	initialRisk := entry.Sub(p.Signal.StopLoss).Abs()
	t1 := p.breakEvenTarget(entry, initialRisk, p.F1)
	t2 := p.breakEvenTarget(entry, initialRisk, p.F2)
	t3 := p.breakEvenTarget(entry, initialRisk, p.F3)

	currPrice := bar.TypicalPrice(pricePrecision)
	nextSL := p.StopLoss()
	if p.crossed(currPrice, t1) {
		nextSL = p.tighten(nextSL, entry)
	}
	if p.crossed(currPrice, t2) {
		nextSL = p.tighten(nextSL, t1)
	}
	if p.crossed(currPrice, t3) {
		nextSL = p.tighten(nextSL, t2)
	}

	if floor, ok := ta.TrailingFloor(p.Side(), []OHLCV{bar}, nextSL); ok {
		nextSL = p.tighten(nextSL, floor)
	}

	next := p
	next.CurrSL = nextSL
	next.PositionRisk = p.PositionRisk.Next(bar).Assess(p.Side(), p.TakeProfit(), nextSL, p.OpenTimestamp, p.Expiration)

	return next, next.PositionRisk.Type != PositionRiskNone
}
