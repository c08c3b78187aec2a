package bus

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Kind distinguishes the bus's three pools.
type Kind int

const (
	KindEvent Kind = iota
	KindCommand
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "events"
	case KindCommand:
		return "commands"
	case KindQuery:
		return "queries"
	default:
		return "unknown"
	}
}

// pool is one of the bus's three worker pools: a fixed set of workers, each
// with its own FIFO/priority queue and dedup set, fed by group-hash
// routing (spec.md §4.1).
type pool struct {
	kind     Kind
	workers  []*worker
	registry *registry
	logger   *zap.Logger
	metrics  *metrics
	seq      atomic.Uint64
	wg       sync.WaitGroup
}

func newPool(kind Kind, numWorkers int, logger *zap.Logger, m *metrics) *pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	p := &pool{
		kind:     kind,
		registry: newRegistry(),
		logger:   logger,
		metrics:  m,
	}
	for i := 0; i < numWorkers; i++ {
		p.workers = append(p.workers, newWorker(i))
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(p.process)
		}(w)
	}
	return p
}

// workerFor hashes group to one of the pool's workers, so all traffic for
// the same (symbol, timeframe) squad serializes on a single worker
// (spec.md §4.1, §5).
func (p *pool) workerFor(group string) *worker {
	if group == "" || len(p.workers) == 1 {
		return p.workers[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(group))
	return p.workers[h.Sum32()%uint32(len(p.workers))]
}

func (p *pool) enqueue(j *job) bool {
	j.seq = p.seq.Add(1)
	w := p.workerFor(j.msg.Meta().Group)
	ok := w.enqueue(j)
	if ok {
		p.metrics.dispatched.WithLabelValues(p.kind.String()).Inc()
	} else {
		p.metrics.deduped.WithLabelValues(p.kind.String()).Inc()
	}
	return ok
}

func (p *pool) idle() bool {
	for _, w := range p.workers {
		if !w.idle() {
			return false
		}
	}
	return true
}

func (p *pool) close() {
	for _, w := range p.workers {
		w.close()
	}
}

func (p *pool) wait() { p.wg.Wait() }

// process runs every matching handler concurrently and, for commands and
// queries, reports completion once all of them finish (spec.md §4.1
// "Handler invocation").
func (p *pool) process(j *job) {
	handlers := p.registry.matching(j.typeName, j.msg)

	if len(handlers) == 0 {
		p.logger.Debug("bus: no handler registered", zap.String("pool", p.kind.String()), zap.String("type", j.typeName))
		p.completeEmpty(j)
		return
	}

	results := make([]any, len(handlers))
	errs := make([]error, len(handlers))

	var wg sync.WaitGroup
	for i, reg := range handlers {
		wg.Add(1)
		go func(i int, reg *registration) {
			defer wg.Done()
			defer p.recoverInto(&errs[i], j.typeName)
			results[i], errs[i] = reg.handler(context.Background(), j.msg)
		}(i, reg)
	}
	wg.Wait()

	p.metrics.handled.WithLabelValues(p.kind.String()).Inc()
	p.complete(j, results, errs)
}

func (p *pool) recoverInto(errSlot *error, typeName string) {
	if r := recover(); r != nil {
		*errSlot = fmt.Errorf("bus: handler panic in %s: %v", typeName, r)
		p.metrics.errors.WithLabelValues(p.kind.String()).Inc()
		p.logger.Error("bus: handler panic", zap.String("pool", p.kind.String()), zap.String("type", typeName), zap.Any("panic", r))
	}
}

func (p *pool) completeEmpty(j *job) {
	switch p.kind {
	case KindCommand:
		j.done <- ErrNoHandler
	case KindQuery:
		j.resultCh <- queryOutcome{err: ErrNoHandler}
	}
}

func (p *pool) complete(j *job, results []any, errs []error) {
	switch p.kind {
	case KindEvent:
		for _, err := range errs {
			if err != nil {
				p.metrics.errors.WithLabelValues(p.kind.String()).Inc()
				p.logger.Warn("bus: event handler error", zap.String("type", j.typeName), zap.Error(err))
			}
		}
	case KindCommand:
		j.done <- firstError(errs)
	case KindQuery:
		out := queryOutcome{err: firstError(errs)}
		for i, err := range errs {
			if err == nil {
				out.result = results[i]
				break
			}
		}
		j.resultCh <- out
	}
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
