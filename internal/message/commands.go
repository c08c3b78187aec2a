package message

import (
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenPosition asks the Smart Router to slice and place entry orders for a
// position (spec.md §4.6). Commands always carry a unique key so they are
// never coalesced (spec.md §4.1).
type OpenPosition struct {
	Position model.Position
}

func (c OpenPosition) TypeName() string { return "OpenPosition" }
func (c OpenPosition) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(c.Position.Signal.Symbol, c.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// ClosePosition asks the Smart Router to issue a single market close
// (spec.md §4.6).
type ClosePosition struct {
	Position  model.Position
	ExitPrice decimal.Decimal
}

func (c ClosePosition) TypeName() string { return "ClosePosition" }
func (c ClosePosition) Meta() bus.Meta {
	return bus.Meta{
		Priority: PriorityHigh,
		Group:    squadGroup(c.Position.Signal.Symbol, c.Position.Signal.Timeframe),
		Key:      uuid.NewString(),
	}
}

// UpdateSettings asks the exchange adapter to update a symbol's position
// mode, margin mode and leverage (spec.md §6 "update_symbol_settings").
type UpdateSettings struct {
	Symbol       model.Symbol
	PositionMode string
	MarginMode   string
	Leverage     int
}

func (c UpdateSettings) TypeName() string { return "UpdateSettings" }
func (c UpdateSettings) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityDefault, Group: "exchange", Key: uuid.NewString()}
}

// UpdateAccountSize refreshes the account size every squad's risk sizing
// reads, issued by the supervisor after every balance query (spec.md §4.8
// "_refresh_account").
type UpdateAccountSize struct {
	AccountSize decimal.Decimal
}

func (c UpdateAccountSize) TypeName() string { return "UpdateAccountSize" }
func (c UpdateAccountSize) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityDefault, Group: "account", Key: uuid.NewString()}
}

// SquadSubscription names one (symbol, timeframe) pair the supervisor wants
// the websocket feed to stream.
type SquadSubscription struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
}

// Subscribe asks the market feed collaborator to start streaming the given
// squads once TRADING begins (spec.md §4.8 "subscribes the websocket to all
// selected (symbol, timeframe) pairs").
type Subscribe struct {
	Squads []SquadSubscription
}

func (c Subscribe) TypeName() string { return "Subscribe" }
func (c Subscribe) Meta() bus.Meta {
	return bus.Meta{Priority: PriorityDefault, Group: "marketfeed", Key: uuid.NewString()}
}
