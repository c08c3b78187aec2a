// Package strategystore holds every squad's performance vector and ranks
// them for the system supervisor's optimizer (C7). Ported from
// original_source/portfolio/_strategy.py's StrategyStorage: MinMax-
// normalize, k-means (k=3 default), stamp cluster id, GetTop sorted by
// (cluster_id, vector[0]) descending with one-entry-per-symbol dedup.
package strategystore

import (
	"sort"
	"sync"

	"github.com/atlas-desktop/squad-engine/internal/performance"
	"github.com/atlas-desktop/squad-engine/internal/workers"
	"github.com/atlas-desktop/squad-engine/pkg/model"
)

// Key identifies one stored strategy genome's performance record.
type Key struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
	Strategy  model.Strategy
}

type entry struct {
	vector    performance.Vector
	clusterID int
	seq       int // insertion order, used only to break (clusterID, vector[0]) ties
}

// Store is StrategyStorage: a clustering index over every squad's
// performance vector. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	nClusters int
	entries   map[Key]*entry
	nextSeq   int

	// pool offloads the k-means pass off the calling goroutine (spec.md §5,
	// §9: CPU-bound work must not block a bus worker), grounded on the
	// teacher's internal/workers.Pool used by internal/orchestrator for
	// evaluateStrategy.
	pool *workers.Pool
}

// New constructs an empty store with k-means's k fixed at nClusters
// (0 or negative defaults to 3, spec.md §6.7 "k=3 default").
func New(pool *workers.Pool, nClusters int) *Store {
	if nClusters <= 0 {
		nClusters = 3
	}
	return &Store{nClusters: nClusters, entries: make(map[Key]*entry), pool: pool}
}

// Next upserts a key's performance vector and, once at least nClusters
// distinct keys are stored, recomputes every entry's cluster id.
func (s *Store) Next(key Key, vector performance.Vector) error {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.vector = vector
	} else {
		s.entries[key] = &entry{vector: vector, clusterID: -1, seq: s.nextSeq}
		s.nextSeq++
	}
	shouldCluster := len(s.entries) >= s.nClusters
	s.mu.Unlock()

	if !shouldCluster {
		return nil
	}

	run := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.updateClusters()
		return nil
	}
	if s.pool == nil {
		return run()
	}
	return s.pool.SubmitWait(workers.TaskFunc(run))
}

// Reset drops one key's record.
func (s *Store) Reset(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// ResetAll clears the store.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*entry)
	s.nextSeq = 0
}

// GetTop returns up to num keys sorted descending by (cluster_id,
// vector[0]), one entry per symbol (the first-ranked key for each symbol
// wins the slot even if it is later dropped by positivePnL), optionally
// requiring the vector's last coordinate to be positive (spec.md §6.7,
// invariant 7, scenario S6).
func (s *Store) GetTop(num int, positivePnL bool) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.entries[keys[i]], s.entries[keys[j]]
		if a.clusterID != b.clusterID {
			return a.clusterID > b.clusterID
		}
		if a.vector[0] != b.vector[0] {
			return a.vector[0] > b.vector[0]
		}
		return a.seq < b.seq
	})

	selected := make(map[string]bool)
	var top []Key
	for _, k := range keys {
		if len(top) >= num {
			break
		}
		if selected[k.Symbol.Name] {
			continue
		}
		selected[k.Symbol.Name] = true

		if positivePnL {
			v := s.entries[k].vector
			if v[len(v)-1] <= 0 {
				continue
			}
		}
		top = append(top, k)
	}
	return top
}
