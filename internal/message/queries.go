package message

import (
	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/google/uuid"
)

// GetSymbols/GetSymbol/GetBalance/GetOpenPosition/GetClosePosition pass
// straight through to the exchange adapter (spec.md §4.6, §6). Queries
// always carry a unique key (spec.md §4.1).
type GetSymbols struct{}

func (q GetSymbols) TypeName() string { return "GetSymbols" }
func (q GetSymbols) Meta() bus.Meta   { return bus.Meta{Group: "exchange", Key: uuid.NewString()} }

type GetSymbol struct {
	Name string
}

func (q GetSymbol) TypeName() string { return "GetSymbol" }
func (q GetSymbol) Meta() bus.Meta   { return bus.Meta{Group: "exchange", Key: uuid.NewString()} }

type GetBalance struct {
	Currency string
}

func (q GetBalance) TypeName() string { return "GetBalance" }
func (q GetBalance) Meta() bus.Meta   { return bus.Meta{Group: "exchange", Key: uuid.NewString()} }

type GetOpenPosition struct {
	Symbol model.Symbol
	Side   model.PositionSide
}

func (q GetOpenPosition) TypeName() string { return "GetOpenPosition" }
func (q GetOpenPosition) Meta() bus.Meta {
	return bus.Meta{Group: squadGroup(q.Symbol, ""), Key: uuid.NewString()}
}

type GetClosePosition struct {
	Symbol model.Symbol
	Side   model.PositionSide
}

func (q GetClosePosition) TypeName() string { return "GetClosePosition" }
func (q GetClosePosition) Meta() bus.Meta {
	return bus.Meta{Group: squadGroup(q.Symbol, ""), Key: uuid.NewString()}
}

// GetTopStrategy asks the strategy storage collaborator for its current
// ranking (spec.md §6.7, §4.8 "_run_optimization"/"_run_trading"). The
// handler returns []strategystore.Key.
type GetTopStrategy struct {
	Num         int
	PositivePnL bool
}

func (q GetTopStrategy) TypeName() string { return "GetTopStrategy" }
func (q GetTopStrategy) Meta() bus.Meta   { return bus.Meta{Group: "strategystore", Key: uuid.NewString()} }
