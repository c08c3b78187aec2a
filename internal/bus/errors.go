package bus

import "errors"

var (
	// ErrShuttingDown is returned by Execute/Query once Stop has been
	// called; pending commands/queries observe it instead of hanging
	// (spec.md §5 "Cancellation", §7).
	ErrShuttingDown = errors.New("bus: shutting down")

	// ErrDuplicate is returned by Execute/Query when the message's key was
	// already pending on its worker. Commands/queries are expected to
	// carry unique keys, so this signals a caller bug rather than the
	// ordinary event-coalescing path.
	ErrDuplicate = errors.New("bus: duplicate key already pending")

	// ErrNoHandler is the error a query/command completes with when no
	// handler is registered for its type name.
	ErrNoHandler = errors.New("bus: no handler registered for type")
)
