package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

type fixedRNG struct{ v float64 }

func (r fixedRNG) Float64() float64 { return r.v }

func longSignal(entry, sl decimal.Decimal, ts int64) Signal {
	return Signal{
		Symbol:    Symbol{Name: "BTCUSDT", PricePrecision: 2},
		Timeframe: Timeframe1m,
		Side:      SignalSideBuy,
		Entry:     entry,
		StopLoss:  sl,
		OHLCV:     OHLCV{Timestamp: ts, Open: entry, High: entry, Low: entry, Close: entry},
	}
}

func bar(ts int64, o, h, l, c string) OHLCV {
	return OHLCV{
		Timestamp: ts,
		Open:      decimal.RequireFromString(o),
		High:      decimal.RequireFromString(h),
		Low:       decimal.RequireFromString(l),
		Close:     decimal.RequireFromString(c),
	}
}

// TestLongBreakEvenHit is scenario S1 from spec.md §8.
func TestLongBreakEvenHit(t *testing.T) {
	signal := longSignal(decimal.NewFromInt(100), decimal.NewFromInt(95), 0)
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 0, fixedRNG{0})
	pos.F1 = decimal.NewFromFloat(0.2)
	pos.F2 = decimal.NewFromFloat(0.5)
	pos.F3 = decimal.NewFromFloat(1.0)
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})

	pos, breached := pos.Next(bar(60_000, "101", "101", "101", "101"), NoOpTechAnalysis{}, 2)
	if breached {
		t.Fatal("should not breach on T1 alone")
	}
	pos, breached = pos.Next(bar(120_000, "102", "102", "102", "102"), NoOpTechAnalysis{}, 2)
	if breached {
		t.Fatal("should not breach on T2 with this spread")
	}

	if !pos.StopLoss().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("want SL=100 (entry), got %s", pos.StopLoss())
	}
	if !pos.IsValid() {
		t.Fatal("position should remain valid")
	}
}

// TestLongStopOut is scenario S2 from spec.md §8 (continues from S1).
func TestLongStopOut(t *testing.T) {
	signal := longSignal(decimal.NewFromInt(100), decimal.NewFromInt(95), 0)
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 0, fixedRNG{0})
	pos.F1, pos.F2, pos.F3 = decimal.NewFromFloat(0.2), decimal.NewFromFloat(0.5), decimal.NewFromFloat(1.0)
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})

	pos, _ = pos.Next(bar(60_000, "101", "101", "101", "101"), NoOpTechAnalysis{}, 2)
	pos, _ = pos.Next(bar(120_000, "102", "102", "102", "102"), NoOpTechAnalysis{}, 2)

	pos, breached := pos.Next(bar(180_000, "97", "98", "94", "96"), NoOpTechAnalysis{}, 2)
	if !breached {
		t.Fatal("expected a risk breach once low crosses the ratcheted SL")
	}
	if pos.PositionRisk.Type != PositionRiskSL {
		t.Fatalf("want SL, got %s", pos.PositionRisk.Type)
	}
	if !pos.PositionRisk.ExitPrice(pos.Side(), pos.TakeProfit(), pos.StopLoss()).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("want exit price = ratcheted SL (100), got %s", pos.PositionRisk.ExitPrice(pos.Side(), pos.TakeProfit(), pos.StopLoss()))
	}
}

// TestExpiration is scenario S3 from spec.md §8.
func TestExpiration(t *testing.T) {
	signal := longSignal(decimal.NewFromInt(100), decimal.NewFromInt(95), 0)
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 900_000, fixedRNG{0})
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})

	var breached bool
	ts := int64(0)
	for i := 0; i < 16; i++ {
		ts += 60_000
		pos, breached = pos.Next(bar(ts, "100", "100.5", "99.5", "100"), NoOpTechAnalysis{}, 2)
	}

	if !breached {
		t.Fatal("expected expiration to trip by t=960000")
	}
	if pos.PositionRisk.Type != PositionRiskExpired {
		t.Fatalf("want EXPIRED, got %s", pos.PositionRisk.Type)
	}
	if !pos.PositionRisk.ExitPrice(pos.Side(), pos.TakeProfit(), pos.StopLoss()).Equal(pos.PositionRisk.LastBar.Close) {
		t.Fatal("expired exit price should be the last bar's close")
	}
}

func TestBreakEvenLadderNeverLoosens(t *testing.T) {
	signal := longSignal(decimal.NewFromInt(100), decimal.NewFromInt(95), 0)
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 0, fixedRNG{0})
	pos.F1, pos.F2, pos.F3 = decimal.NewFromFloat(0.2), decimal.NewFromFloat(0.5), decimal.NewFromFloat(1.0)
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})

	prices := []string{"101", "102", "101.5", "100.2", "103"}
	ts := int64(0)
	prevSL := pos.StopLoss()
	for _, p := range prices {
		ts += 60_000
		pos, _ = pos.Next(bar(ts, p, p, p, p), NoOpTechAnalysis{}, 2)
		if pos.StopLoss().LessThan(prevSL) {
			t.Fatalf("SL loosened: %s -> %s", prevSL, pos.StopLoss())
		}
		prevSL = pos.StopLoss()
	}
}

func TestPositionSizeAndPnL(t *testing.T) {
	signal := longSignal(decimal.NewFromInt(100), decimal.NewFromInt(95), 0)
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 0, fixedRNG{0})
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(2)})

	if !pos.Size().Equal(decimal.NewFromInt(2)) {
		t.Fatalf("want size 2, got %s", pos.Size())
	}
	if pos.Closed() {
		t.Fatal("position with only an open order should not be closed")
	}

	pos = pos.AppendOrder(Order{Status: OrderStatusClosed, Price: decimal.NewFromInt(110), Size: decimal.NewFromInt(2)})
	if !pos.Closed() {
		t.Fatal("position should be closed once closed size matches open size")
	}
	wantPnL := decimal.NewFromInt(110).Sub(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(2))
	if !pos.PnL().Equal(wantPnL) {
		t.Fatalf("want pnl %s, got %s", wantPnL, pos.PnL())
	}
}

func TestShortSideMirrorsLong(t *testing.T) {
	signal := Signal{
		Symbol: Symbol{Name: "BTCUSDT", PricePrecision: 2}, Timeframe: Timeframe1m,
		Side: SignalSideSell, Entry: decimal.NewFromInt(100), StopLoss: decimal.NewFromInt(105),
		OHLCV: OHLCV{Timestamp: 0, Open: decimal.NewFromInt(100), High: decimal.NewFromInt(100), Low: decimal.NewFromInt(100), Close: decimal.NewFromInt(100)},
	}
	pos := NewPosition(signal, SignalRisk{}, decimal.NewFromInt(1), 0, fixedRNG{0})
	pos.F1, pos.F2, pos.F3 = decimal.NewFromFloat(0.2), decimal.NewFromFloat(0.5), decimal.NewFromFloat(1.0)
	pos = pos.AppendOrder(Order{Status: OrderStatusExecuted, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})

	pos, _ = pos.Next(bar(60_000, "99", "99", "99", "99"), NoOpTechAnalysis{}, 2)
	if !pos.StopLoss().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("want SL ratcheted down to entry (100), got %s", pos.StopLoss())
	}
	if pos.StopLoss().GreaterThan(decimal.NewFromInt(105)) {
		t.Fatal("SL should never loosen above the initial short stop")
	}
}
