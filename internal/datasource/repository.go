// Package datasource provides the in-memory historical OHLCV repository
// the paper executor consults to look ahead to "the next available bar"
// (spec.md §4.5), grounded on original_source/executor/_paper_actor.py's
// AbstractMarketRepository/_find_next_bar and the teacher's
// internal/data.Store.
package datasource

import (
	"sort"
	"sync"

	"github.com/atlas-desktop/squad-engine/pkg/model"
)

type key struct {
	symbol    string
	timeframe model.Timeframe
}

// Repository is a process-local cache of historical bars, keyed by
// (symbol, timeframe) and kept sorted by timestamp.
type Repository struct {
	mu   sync.RWMutex
	bars map[key][]model.OHLCV
}

// New constructs an empty repository.
func New() *Repository {
	return &Repository{bars: make(map[key][]model.OHLCV)}
}

// Put inserts or replaces a symbol/timeframe's bar history, sorted
// ascending by timestamp.
func (r *Repository) Put(symbol model.Symbol, timeframe model.Timeframe, bars []model.OHLCV) {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bars[key{symbol.Name, timeframe}] = sorted
}

// Append adds a single newly closed bar to a symbol/timeframe's history.
func (r *Repository) Append(symbol model.Symbol, timeframe model.Timeframe, bar model.OHLCV) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{symbol.Name, timeframe}
	r.bars[k] = append(r.bars[k], bar)
}

// FindNextBar returns the first stored bar whose timestamp is strictly
// after afterTs, or false if none is known yet (spec.md §4.5 "next
// available bar").
func (r *Repository) FindNextBar(symbol model.Symbol, timeframe model.Timeframe, afterTs int64) (model.OHLCV, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bars := r.bars[key{symbol.Name, timeframe}]
	idx := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp > afterTs })
	if idx >= len(bars) {
		return model.OHLCV{}, false
	}
	return bars[idx], true
}

// Bars returns a defensive copy of every bar stored for symbol/timeframe.
func (r *Repository) Bars(symbol model.Symbol, timeframe model.Timeframe) []model.OHLCV {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bars := r.bars[key{symbol.Name, timeframe}]
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	return out
}
