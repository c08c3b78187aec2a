// Package position implements the Position State Machine (C3): two
// mirrored FSMs, one per side, run inside a single position Actor per
// (symbol, timeframe) squad (spec.md §4.3).
package position

// State is one state of the per-side position FSM.
type State string

const (
	StateIdle          State = "IDLE"
	StateWaitingSignal State = "WAITING_SIGNAL"
	StateOpening       State = "OPENING"
	StateOpen          State = "OPEN"
	StateClosing       State = "CLOSING"
	StateClosed        State = "CLOSED"
	StateFailed        State = "FAILED"
)

// acceptsSignal reports whether a new signal may create a position while in
// this state: at most one active position per (symbol, timeframe, side);
// duplicate signals are dropped (spec.md §4.3 "Guards").
func (s State) acceptsSignal() bool {
	switch s {
	case StateIdle, StateClosed, StateFailed, "":
		return true
	default:
		return false
	}
}
