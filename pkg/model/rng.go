package model

import "github.com/shopspring/decimal"

// RNG is the randomness source injected into position construction so
// break-even factor sampling stays reproducible in tests (spec.md §9,
// "Random break-even factors ... must be reproducible in tests via an
// injectable RNG").
type RNG interface {
	Float64() float64
}

// break-even factor ranges, spec.md §3.
var (
	f1Lo, f1Hi = 0.13, 0.3
	f2Lo, f2Hi = 0.32, 0.8
	f3Lo, f3Hi = 0.9, 1.8
)

// SampleBreakEvenFactors draws the three ordered break-even factors
// f1<f2<f3 from the ranges fixed by spec.md §3, each U(lo,hi).
func SampleBreakEvenFactors(rng RNG) (f1, f2, f3 decimal.Decimal) {
	f1 = decimal.NewFromFloat(uniform(rng, f1Lo, f1Hi))
	f2 = decimal.NewFromFloat(uniform(rng, f2Lo, f2Hi))
	f3 = decimal.NewFromFloat(uniform(rng, f3Lo, f3Hi))
	return f1, f2, f3
}

func uniform(rng RNG, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
