package model

import "github.com/shopspring/decimal"

// SignalRiskType is an exogenous risk score attached to a signal by the
// (out-of-scope) strategy generator or a risk-scoring collaborator.
type SignalRiskType string

const (
	SignalRiskNone     SignalRiskType = "NONE"
	SignalRiskVeryLow  SignalRiskType = "VERY_LOW"
	SignalRiskLow      SignalRiskType = "LOW"
	SignalRiskModerate SignalRiskType = "MODERATE"
	SignalRiskHigh     SignalRiskType = "HIGH"
	SignalRiskVeryHigh SignalRiskType = "VERY_HIGH"
)

// SignalRisk carries the generator's own risk score plus optional suggested
// TP/SL for a signal. Position.TakeProfit() consults TP when no manual
// override is set; StopLoss() intentionally never consults SL here — the
// original implementation keeps that branch commented out (see SPEC_FULL.md §5),
// so the signal's own stop_loss always wins.
type SignalRisk struct {
	Type SignalRiskType
	TP   decimal.Decimal
	SL   decimal.Decimal
	// HasTP/HasSL distinguish "no suggestion" from a genuine zero price.
	HasTP bool
	HasSL bool
}
