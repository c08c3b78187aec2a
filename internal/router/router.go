// Package router implements the Smart Order Router (C6): it slices a
// position's desired entry size into TWAP-priced chunks, aborts on repeated
// stop-loss risk breaches, and passes queries straight through to the
// exchange adapter (spec.md §4.6). Grounded on
// original_source/sor/_router.py.
package router

import (
	"context"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/exchange"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config mirrors spec.md §6's enumerated `position.*` options.
type Config struct {
	EntryTimeout         time.Duration
	StopLossThreshold    decimal.Decimal
	MaxOrderSlice        int
	MaxOrderBreach       int
	MaxOpenOrderAttempts int
}

// sliceCount computes N = min(max(1, size/min_size), max_order_slice)
// (spec.md §4.6).
func sliceCount(size, minSize decimal.Decimal, maxSlice int) int {
	if minSize.IsZero() {
		return 1
	}
	n := size.Div(minSize).IntPart()
	if n < 1 {
		n = 1
	}
	if int(n) > maxSlice {
		n = int64(maxSlice)
	}
	return int(n)
}

func chunkSize(size decimal.Decimal, n int, precision int32) decimal.Decimal {
	return size.DivRound(decimal.NewFromInt(int64(n)), precision)
}

// isRiskBreach reports whether a candidate entry price sits too close to
// the stop-loss relative to the theoretical entry: `|sl-price| <
// threshold*|sl-desired_entry|` (spec.md §4.6).
func isRiskBreach(stopLoss, price, desiredEntry, threshold decimal.Decimal) bool {
	theoreticalDistance := stopLoss.Sub(desiredEntry).Abs()
	candidateDistance := stopLoss.Sub(price).Abs()
	return threshold.Mul(theoreticalDistance).GreaterThan(candidateDistance)
}

// Actor is the process-wide Smart Order Router. Unlike the per-squad
// actors, it owns no squad state: every handler reads only its command or
// query payload and the exchange adapter.
type Actor struct {
	actor.Base

	bus       *bus.Bus
	logger    *zap.Logger
	adapter   exchange.Adapter
	obSource  exchange.OrderBookSource
	generator PriceGenerator
	cfg       Config

	// sleep is the chunk-pacing primitive; tests replace it with a no-op so
	// S5 and similar scenarios run instantly.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New constructs a Smart Order Router actor.
func New(logger *zap.Logger, adapter exchange.Adapter, obSource exchange.OrderBookSource, generator PriceGenerator, cfg Config) *Actor {
	if generator == nil {
		generator = TWAP{}
	}
	return &Actor{logger: logger, adapter: adapter, obSource: obSource, generator: generator, cfg: cfg, sleep: sleepCtx}
}

// Start registers every command/query handler spec.md §4.6 names.
func (a *Actor) Start(b *bus.Bus) {
	a.bus = b
	a.Subscribe(b, bus.KindCommand, "OpenPosition", nil, a.onOpenPosition)
	a.Subscribe(b, bus.KindCommand, "ClosePosition", nil, a.onClosePosition)
	a.Subscribe(b, bus.KindCommand, "UpdateSettings", nil, a.onUpdateSettings)
	a.Subscribe(b, bus.KindQuery, "GetSymbols", nil, a.onGetSymbols)
	a.Subscribe(b, bus.KindQuery, "GetSymbol", nil, a.onGetSymbol)
	a.Subscribe(b, bus.KindQuery, "GetBalance", nil, a.onGetBalance)
	a.Subscribe(b, bus.KindQuery, "GetOpenPosition", nil, a.onGetOpenPosition)
	a.Subscribe(b, bus.KindQuery, "GetClosePosition", nil, a.onGetClosePosition)
}

// Stop unregisters every handler this actor registered.
func (a *Actor) Stop(b *bus.Bus) {
	a.UnsubscribeAll(b)
}

// onOpenPosition slices the position's desired size into TWAP-priced chunks
// and places each as a limit order, aborting on repeated risk breaches or
// placement failures (spec.md §4.6).
func (a *Actor) onOpenPosition(msg bus.Message) (any, error) {
	ev := msg.(message.OpenPosition)
	ctx := context.Background()
	pos := ev.Position
	symbol := pos.Signal.Symbol
	desiredEntry := pos.Signal.Entry
	stopLoss := pos.StopLoss()
	size := pos.InitialSize

	numOrders := sliceCount(size, symbol.MinPositionSize, a.cfg.MaxOrderSlice)
	size = chunkSize(size, numOrders, symbol.PositionPrecision)

	ob, err := a.obSource.FetchOrderBook(ctx, symbol)
	if err != nil {
		a.logger.Warn("router: order book unavailable, aborting open", zap.String("symbol", symbol.Name), zap.Error(err))
		return nil, nil
	}
	// Sample more candidate ticks than chunks so a few risk breaches don't
	// starve the loop before every chunk has a chance to place.
	candidates := a.generator.Prices(ctx, ob, numOrders+a.cfg.MaxOrderBreach+a.cfg.MaxOpenOrderAttempts)

	orderCounter := 0
	numOrderBreach := 0
	numOpenOrderAttempts := 0

	for _, price := range candidates {
		if isRiskBreach(stopLoss, price, desiredEntry, a.cfg.StopLossThreshold) {
			numOrderBreach++
			a.logger.Info("router: order risk breached",
				zap.String("symbol", symbol.Name), zap.String("entry", desiredEntry.String()),
				zap.String("stop_loss", stopLoss.String()), zap.String("price", price.String()))
			if numOrderBreach >= a.cfg.MaxOrderBreach {
				break
			}
			if !a.sleep(ctx, 3*time.Second) {
				return nil, ctx.Err()
			}
			continue
		}

		orderID, placeErr := a.adapter.CreateLimitOrder(ctx, symbol, pos.Side(), size, price)
		placed := placeErr == nil
		if placed {
			if ok, hasErr := a.adapter.HasOrder(ctx, orderID, symbol); hasErr != nil || !ok {
				placed = false
			}
		}

		if placed {
			orderCounter++
			if numOpenOrderAttempts > 0 {
				numOpenOrderAttempts--
			}
			a.logger.Info("router: opened order", zap.String("order_id", orderID), zap.String("price", price.String()))
		} else {
			numOpenOrderAttempts++
		}

		if orderCounter >= numOrders {
			a.logger.Info("router: all chunks placed", zap.Int("count", orderCounter))
			break
		}
		if numOpenOrderAttempts >= a.cfg.MaxOpenOrderAttempts {
			a.logger.Warn("router: aborting open, too many failed attempts", zap.String("symbol", symbol.Name))
			break
		}
		if !a.sleep(ctx, a.cfg.EntryTimeout) {
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (a *Actor) onClosePosition(msg bus.Message) (any, error) {
	ev := msg.(message.ClosePosition)
	pos := ev.Position
	return nil, a.adapter.ClosePosition(context.Background(), pos.Signal.Symbol, pos.Side())
}

func (a *Actor) onUpdateSettings(msg bus.Message) (any, error) {
	ev := msg.(message.UpdateSettings)
	return nil, a.adapter.UpdateSymbolSettings(context.Background(), ev.Symbol, ev.PositionMode, ev.MarginMode, ev.Leverage)
}

func (a *Actor) onGetSymbols(_ bus.Message) (any, error) {
	return a.adapter.FetchFutureSymbols(context.Background())
}

func (a *Actor) onGetSymbol(msg bus.Message) (any, error) {
	q := msg.(message.GetSymbol)
	symbols, err := a.adapter.FetchFutureSymbols(context.Background())
	if err != nil {
		return nil, err
	}
	for _, s := range symbols {
		if s.Name == q.Name {
			return s, nil
		}
	}
	return nil, nil
}

func (a *Actor) onGetBalance(msg bus.Message) (any, error) {
	q := msg.(message.GetBalance)
	return a.adapter.FetchAccountBalance(context.Background(), q.Currency)
}

func (a *Actor) onGetOpenPosition(msg bus.Message) (any, error) {
	q := msg.(message.GetOpenPosition)
	info, err := a.adapter.FetchPosition(context.Background(), q.Symbol, q.Side)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return model.Order{Status: model.OrderStatusFailed}, nil
	}
	return model.Order{
		Status: model.OrderStatusExecuted,
		Type:   model.OrderTypeMarket,
		Price:  info.EntryPrice,
		Size:   info.PositionSize,
	}, nil
}

func (a *Actor) onGetClosePosition(msg bus.Message) (any, error) {
	q := msg.(message.GetClosePosition)
	trade, err := a.adapter.FetchTrade(context.Background(), q.Symbol)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return model.Order{Status: model.OrderStatusFailed}, nil
	}
	return model.Order{
		Status: model.OrderStatusClosed,
		Type:   model.OrderTypeMarket,
		Price:  trade.Price,
		Size:   trade.Amount,
	}, nil
}

// sleepCtx sleeps for d or returns false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
