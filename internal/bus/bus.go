package bus

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config configures a Bus's worker pools (spec.md §6: "bus.num_workers").
type Config struct {
	NumWorkers int
	Registerer prometheus.Registerer
}

// Bus is the process-wide event/command/query router. Exactly one instance
// ever exists per process; New always returns that instance once
// constructed (spec.md §4.1 "Singleton").
type Bus struct {
	logger *zap.Logger

	events   *pool
	commands *pool
	queries  *pool

	mu      sync.Mutex
	stopped bool
}

var (
	instance *Bus
	once     sync.Once
)

// New constructs the singleton Bus on first call; subsequent calls (with
// any arguments) return the original instance unchanged.
func New(logger *zap.Logger, cfg Config) *Bus {
	once.Do(func() {
		reg := cfg.Registerer
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		m := newMetrics(reg)
		instance = &Bus{
			logger:   logger,
			events:   newPool(KindEvent, cfg.NumWorkers, logger, m),
			commands: newPool(KindCommand, cfg.NumWorkers, logger, m),
			queries:  newPool(KindQuery, cfg.NumWorkers, logger, m),
		}
	})
	return instance
}

// resetForTest tears down the singleton so a fresh Bus can be built; it
// exists only for package tests that need process-wide isolation.
func resetForTest() {
	once = sync.Once{}
	instance = nil
}

// NewUnshared builds a standalone Bus that bypasses the process-wide
// singleton. Production wiring must always go through New; this exists so
// tests in other packages can get an isolated Bus without fighting over
// the shared instance.
func NewUnshared(logger *zap.Logger, cfg Config) *Bus {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newMetrics(reg)
	return &Bus{
		logger:   logger,
		events:   newPool(KindEvent, cfg.NumWorkers, logger, m),
		commands: newPool(KindCommand, cfg.NumWorkers, logger, m),
		queries:  newPool(KindQuery, cfg.NumWorkers, logger, m),
	}
}

// On registers h for typeName on the event pool. filter may be nil.
func (b *Bus) On(typeName string, h Handler, filter Filter) *Subscription {
	return b.events.registry.register(typeName, h, filter)
}

// OnCommand registers h for typeName on the command pool.
func (b *Bus) OnCommand(typeName string, h Handler, filter Filter) *Subscription {
	return b.commands.registry.register(typeName, h, filter)
}

// OnQuery registers h for typeName on the query pool.
func (b *Bus) OnQuery(typeName string, h Handler, filter Filter) *Subscription {
	return b.queries.registry.register(typeName, h, filter)
}

// Off unregisters a subscription previously returned by On/OnCommand/OnQuery
// from the corresponding pool.
func (b *Bus) Off(kind Kind, sub *Subscription) {
	switch kind {
	case KindEvent:
		b.events.registry.unregister(sub)
	case KindCommand:
		b.commands.registry.unregister(sub)
	case KindQuery:
		b.queries.registry.unregister(sub)
	}
}

// Dispatch enqueues an event fire-and-forget; it returns once the message
// is queued (or immediately, if suppressed as a duplicate). The returned
// bool reports whether the message was actually enqueued.
func (b *Bus) Dispatch(msg Message) bool {
	if b.isStopped() {
		return false
	}
	return b.events.enqueue(&job{typeName: msg.TypeName(), msg: msg})
}

// Execute enqueues a command and awaits every matching handler's
// completion, or ctx's cancellation, or the bus shutting down.
func (b *Bus) Execute(ctx context.Context, msg Message) error {
	if b.isStopped() {
		return ErrShuttingDown
	}
	done := make(chan error, 1)
	if !b.commands.enqueue(&job{typeName: msg.TypeName(), msg: msg, done: done}) {
		return ErrDuplicate
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query enqueues a query and awaits its typed response, ctx's cancellation,
// or the bus shutting down.
func (b *Bus) Query(ctx context.Context, msg Message) (any, error) {
	if b.isStopped() {
		return nil, ErrShuttingDown
	}
	resultCh := make(chan queryOutcome, 1)
	if !b.queries.enqueue(&job{typeName: msg.TypeName(), msg: msg, resultCh: resultCh}) {
		return nil, ErrDuplicate
	}
	select {
	case out := <-resultCh:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until all three pools have drained their queues, or ctx is
// done. It is a best-effort barrier: a handler that enqueues further work
// can keep the pools busy indefinitely.
func (b *Bus) Wait(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if b.events.idle() && b.commands.idle() && b.queries.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop shuts the bus down in an orderly manner: no further Dispatch/
// Execute/Query calls are accepted (Dispatch returns false, Execute/Query
// return ErrShuttingDown), each
// pool drains its in-flight and already-queued work, and Stop returns once
// every worker has exited.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	b.logger.Info("bus: stopping")
	b.events.close()
	b.commands.close()
	b.queries.close()
	b.events.wait()
	b.commands.wait()
	b.queries.wait()
	b.logger.Info("bus: stopped")
}

func (b *Bus) isStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}
