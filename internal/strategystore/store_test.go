package strategystore

import (
	"testing"

	"github.com/atlas-desktop/squad-engine/internal/performance"
	"github.com/atlas-desktop/squad-engine/pkg/model"
)

func key(symbolName string, n int) Key {
	return Key{
		Symbol:    model.Symbol{Name: symbolName},
		Timeframe: model.Timeframe1m,
		Strategy:  model.NewStrategy(symbolName + string(rune('0'+n))),
	}
}

// S6 (spec.md §8): one entry per symbol, the higher-ranked same-symbol key
// wins the slot.
func TestGetTopOnePerSymbol(t *testing.T) {
	s := New(nil, 3)
	a1, a2, b1 := key("A", 1), key("A", 2), key("B", 1)

	if err := s.Next(a1, performance.Vector{1.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Next(a2, performance.Vector{2.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Next(b1, performance.Vector{0.5, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}

	top := s.GetTop(2, true)
	if len(top) != 2 {
		t.Fatalf("want 2 keys, got %d", len(top))
	}
	if top[0] != a2 {
		t.Fatalf("want higher-ranked A key (a2) first, got %+v", top[0])
	}
	if top[1] != b1 {
		t.Fatalf("want B key second, got %+v", top[1])
	}
}

// invariant 7: GetTop never returns two keys for the same symbol, and
// ordering for equal (cluster_id, vector[0]) is stable by insertion order.
func TestGetTopStableTieBreak(t *testing.T) {
	s := New(nil, 3)
	first, second := key("C", 1), key("C", 2)

	if err := s.Next(first, performance.Vector{1.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	// Same symbol, so only one of these can ever be selected.
	if err := s.Next(second, performance.Vector{1.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	// Two more symbols, so the result can be checked for order.
	other := key("D", 1)
	if err := s.Next(other, performance.Vector{1.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	third := key("E", 1)
	if err := s.Next(third, performance.Vector{1.0, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}

	top := s.GetTop(10, false)
	seen := map[string]bool{}
	for _, k := range top {
		if seen[k.Symbol.Name] {
			t.Fatalf("duplicate symbol %s in GetTop result", k.Symbol.Name)
		}
		seen[k.Symbol.Name] = true
	}
	if len(top) != 3 {
		t.Fatalf("want 3 distinct-symbol keys, got %d", len(top))
	}
	// Equal vector[0] and cluster id: insertion order (C, D, E) must win.
	if top[0] != first || top[1] != other || top[2] != third {
		t.Fatalf("want insertion-order tie-break C,D,E, got %+v", top)
	}
}

func TestGetTopFiltersNonPositivePnL(t *testing.T) {
	s := New(nil, 3)
	losing := key("F", 1)
	winning := key("G", 1)
	extra := key("H", 1)

	_ = s.Next(losing, performance.Vector{5.0, 0, 0, -1})
	_ = s.Next(winning, performance.Vector{1.0, 0, 0, 1})
	_ = s.Next(extra, performance.Vector{0.5, 0, 0, 1})

	top := s.GetTop(10, true)
	for _, k := range top {
		if k == losing {
			t.Fatal("losing key should be filtered out under positivePnL")
		}
	}
}
