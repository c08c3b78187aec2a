package model

import "errors"

// Package-level sentinel errors for the Position error kinds (spec.md §7).
// No package in this module returns or checks them.
var (
	// ErrInvariantViolation marks a position whose TP/SL relationship broke
	// while OPEN (e.g. TP <= SL for LONG). No actor appends a FAILED exit
	// order for such a position; it stays OPEN until a risk breach or
	// BacktestEnded closes it.
	ErrInvariantViolation = errors.New("model: position invariant violated")

	// ErrBrokerReject marks an order the broker placed but then refused.
	ErrBrokerReject = errors.New("model: broker rejected order")
)
