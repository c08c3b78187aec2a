// Package bus implements the event/command/query bus: three prioritized
// worker pools with per-group FIFO ordering and message deduplication
// (spec.md §4.1).
package bus

import "context"

// Meta carries the scheduling identity every bus message must supply.
type Meta struct {
	// Priority orders messages within a worker's queue; lower runs sooner.
	Priority int
	// Group hashes to a worker index, serializing same-group traffic
	// (e.g. all messages for one (symbol, timeframe) squad).
	Group string
	// Key is the deduplication identity. Commands and queries must carry a
	// unique key (a UUID); events may deliberately share a key to coalesce.
	Key string
}

// Message is the tagged-record contract every Event, Command and Query
// satisfies (spec.md §3).
type Message interface {
	// TypeName identifies the message's registration key, e.g.
	// "GoLongSignalReceived" or "OpenPosition".
	TypeName() string
	Meta() Meta
}

// Handler processes one message. Event handlers ignore the returned value;
// query handlers use it as the response; command handlers ignore it and
// report only the error. Unifying the signature lets one registry and one
// dispatch path serve all three pools.
type Handler func(ctx context.Context, msg Message) (any, error)

// Filter runs before a handler to drop irrelevant traffic (spec.md §4.2,
// "pre_receive" — wrong symbol/timeframe). A nil filter always passes.
type Filter func(msg Message) bool
