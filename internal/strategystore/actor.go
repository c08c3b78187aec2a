package strategystore

import (
	"sync"

	"github.com/atlas-desktop/squad-engine/internal/actor"
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/internal/performance"
	"github.com/atlas-desktop/squad-engine/internal/workers"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
)

// Actor exposes a Store over the bus: it answers GetTopStrategy, tracks the
// account size from UpdateAccountSize, and folds every PositionClosed event
// into its squad's performance vector (spec.md §4.8 "_run_optimization"/
// "_run_trading", §6.7). Grounded on original_source/portfolio/_strategy.py,
// where the same StrategyStorage instance both answers queries and is fed
// by the backtest/trading loop's closed positions.
type Actor struct {
	actor.Base

	store    *Store
	analyzer performance.Analyzer

	mu          sync.Mutex
	accountSize decimal.Decimal
	closed      map[Key][]model.Position
}

// NewActor wraps store for bus registration.
func NewActor(store *Store) *Actor {
	return &Actor{store: store, closed: make(map[Key][]model.Position)}
}

func (a *Actor) Start(b *bus.Bus) {
	a.Subscribe(b, bus.KindQuery, "GetTopStrategy", nil, a.onGetTopStrategy)
	a.Subscribe(b, bus.KindCommand, "UpdateAccountSize", nil, a.onUpdateAccountSize)
	a.Subscribe(b, bus.KindEvent, "PositionClosed", nil, a.onPositionClosed)
}

func (a *Actor) Stop(b *bus.Bus) { a.UnsubscribeAll(b) }

func (a *Actor) onGetTopStrategy(msg bus.Message) (any, error) {
	q := msg.(message.GetTopStrategy)
	return a.store.GetTop(q.Num, q.PositivePnL), nil
}

func (a *Actor) onUpdateAccountSize(msg bus.Message) (any, error) {
	c := msg.(message.UpdateAccountSize)
	a.mu.Lock()
	a.accountSize = c.AccountSize
	a.mu.Unlock()
	return nil, nil
}

func (a *Actor) onPositionClosed(msg bus.Message) (any, error) {
	ev := msg.(message.PositionClosed)
	sig := ev.Position.Signal
	key := Key{Symbol: sig.Symbol, Timeframe: sig.Timeframe, Strategy: sig.Strategy}

	a.mu.Lock()
	a.closed[key] = append(a.closed[key], ev.Position)
	history := append([]model.Position(nil), a.closed[key]...)
	accountSize := a.accountSize
	a.mu.Unlock()

	// The statistics run on the store's worker pool, like its k-means pass,
	// so they never run on the bus worker goroutine (inline without a pool).
	var vector performance.Vector
	calculate := func() error {
		vector = a.analyzer.Calculate(accountSize, history)
		return nil
	}
	if a.store.pool == nil {
		_ = calculate()
	} else if err := a.store.pool.SubmitWait(workers.TaskFunc(calculate)); err != nil {
		return nil, err
	}
	return nil, a.store.Next(key, vector)
}
