package position

import "github.com/atlas-desktop/squad-engine/pkg/model"

// sideSlot is the position Actor's own state for one side: the FSM state
// plus the current position value, if any (spec.md §4.3; ownership per
// spec.md §3: "an actor exclusively owns its inbox and any per-actor state
// (positions, storage)").
type sideSlot struct {
	fsm      State
	position model.Position
	active   bool
}

// Storage is the position actor's exclusively-owned record of its current
// long/short slots and the closed positions accumulated so far this run,
// which the performance collaborator later consumes.
type Storage struct {
	long, short sideSlot
	closed      []model.Position
}

// NewStorage returns a storage with both sides idle.
func NewStorage() *Storage {
	return &Storage{long: sideSlot{fsm: StateIdle}, short: sideSlot{fsm: StateIdle}}
}

func (s *Storage) slot(side model.PositionSide) *sideSlot {
	if side == model.PositionSideLong {
		return &s.long
	}
	return &s.short
}

// State returns the current FSM state for side.
func (s *Storage) State(side model.PositionSide) State { return s.slot(side).fsm }

// Position returns the current position for side and whether one exists.
func (s *Storage) Position(side model.PositionSide) (model.Position, bool) {
	slot := s.slot(side)
	return slot.position, slot.active
}

// transition moves side to next, optionally replacing its position value.
func (s *Storage) transition(side model.PositionSide, next State, pos model.Position, active bool) {
	slot := s.slot(side)
	slot.fsm = next
	slot.position = pos
	slot.active = active
}

// SetPosition overwrites side's position value in place without changing
// its FSM state; the risk actor uses this to publish an advanced ladder
// state back into the position actor's storage (spec.md §3: the risk actor
// advances position_risk, it does not own it).
func (s *Storage) SetPosition(side model.PositionSide, pos model.Position) {
	slot := s.slot(side)
	if !slot.active {
		return
	}
	slot.position = pos
}

// archiveClosed records a closed position for later performance analysis
// and clears the side's active slot back to its terminal state.
func (s *Storage) archiveClosed(side model.PositionSide, pos model.Position) {
	s.closed = append(s.closed, pos)
	s.transition(side, StateClosed, pos, false)
}

// ClosedPositions returns every position this actor has closed so far.
func (s *Storage) ClosedPositions() []model.Position {
	out := make([]model.Position, len(s.closed))
	copy(out, s.closed)
	return out
}
