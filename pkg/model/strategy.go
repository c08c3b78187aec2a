package model

import (
	"hash/fnv"
	"strconv"
)

// Strategy is an opaque, hashable, printable value identifying a strategy
// genome produced by the (out-of-scope) generator. hash(strategy) is stable
// across the process's lifetime, matching spec.md §3.
type Strategy struct {
	genome string
	hash   uint64
}

// NewStrategy wraps a genome string into a Strategy, computing its stable
// FNV-1a hash once.
func NewStrategy(genome string) Strategy {
	h := fnv.New64a()
	_, _ = h.Write([]byte(genome))
	return Strategy{genome: genome, hash: h.Sum64()}
}

// Hash returns the strategy's stable hash.
func (s Strategy) Hash() uint64 { return s.hash }

// String renders the strategy for logs and dedup keys.
func (s Strategy) String() string {
	if s.genome == "" {
		return "strategy#0"
	}
	return "strategy#" + strconv.FormatUint(s.hash, 16)
}
