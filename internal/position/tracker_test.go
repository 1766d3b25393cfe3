package position

import (
	"math/rand"
	"testing"
	"time"

	"algotradingv1/internal/model"
)

func snapAt(day int, close float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Ticker:  "SBIN",
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close:   close,
		RSI:     model.Avail(50),
		MAShort: model.Avail(100),
		MALong:  model.Avail(100),
	}
}

func TestTracker_OpenCloseRoundTrip(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(10)})

	if tr.State() != Flat {
		t.Fatalf("initial state = %s, want FLAT", tr.State())
	}

	trans, err := tr.Apply(model.SignalBuy, snapAt(5, 100.0), 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if trans.Opened == nil || trans.Closed != nil {
		t.Fatalf("expected open-only transition, got %+v", trans)
	}
	if trans.Opened.EntryPrice != 100.0 || trans.Opened.Qty != 10 {
		t.Errorf("opened position = %+v", trans.Opened)
	}
	if tr.State() != Long {
		t.Errorf("state after buy = %s, want LONG", tr.State())
	}

	trans, err = tr.Apply(model.SignalSell, snapAt(20, 110.0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if trans.Closed == nil {
		t.Fatal("expected a closed trade")
	}
	trade := trans.Closed
	if trade.PnLPct != 10.0 {
		t.Errorf("PnLPct = %.4f, want 10.0", trade.PnLPct)
	}
	if trade.PnL != 100.0 {
		t.Errorf("PnL = %.4f, want 100.0", trade.PnL)
	}
	if trade.HoldingDays != 15 {
		t.Errorf("HoldingDays = %d, want 15", trade.HoldingDays)
	}
	if trade.CloseReason != model.CloseBySignal {
		t.Errorf("CloseReason = %s, want signal", trade.CloseReason)
	}
	if trade.MLConfidence != 0.8 {
		t.Errorf("MLConfidence = %.2f, want 0.8 (captured at entry)", trade.MLConfidence)
	}
	if tr.State() != Flat {
		t.Errorf("state after sell = %s, want FLAT", tr.State())
	}
}

func TestTracker_NoOps(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(1)})

	// SELL while flat
	trans, err := tr.Apply(model.SignalSell, snapAt(1, 100), 0)
	if err != nil || trans.Opened != nil || trans.Closed != nil {
		t.Fatalf("sell while flat: want no-op, got %+v err=%v", trans, err)
	}

	// HOLD while flat
	if trans, _ := tr.Apply(model.SignalHold, snapAt(2, 100), 0); trans.Opened != nil {
		t.Fatal("hold while flat must not open")
	}

	// BUY while already long
	if _, err := tr.Apply(model.SignalBuy, snapAt(3, 100), 0); err != nil {
		t.Fatal(err)
	}
	trans, err = tr.Apply(model.SignalBuy, snapAt(4, 105), 0)
	if err != nil || trans.Opened != nil {
		t.Fatalf("buy while long: want no-op, got %+v err=%v", trans, err)
	}
	if pos, ok := tr.OpenPosition(); !ok || pos.EntryPrice != 100 {
		t.Errorf("original position must be untouched, got %+v ok=%v", pos, ok)
	}
}

func TestTracker_ConfidenceGate(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(1), MinConfidence: 0.6})

	// Below threshold: gated
	trans, err := tr.Apply(model.SignalBuy, snapAt(1, 100), 0.5)
	if err != nil || trans.Opened != nil {
		t.Fatalf("gated buy must be a no-op, got %+v err=%v", trans, err)
	}
	if tr.State() != Flat {
		t.Errorf("state = %s, want FLAT", tr.State())
	}

	// At threshold: accepted
	trans, _ = tr.Apply(model.SignalBuy, snapAt(2, 100), 0.6)
	if trans.Opened == nil {
		t.Fatal("buy at threshold must open")
	}

	// Exits are never gated, even with confidence 0
	trans, _ = tr.Apply(model.SignalSell, snapAt(3, 90), 0)
	if trans.Closed == nil {
		t.Fatal("sell must close regardless of confidence")
	}
}

func TestTracker_GateDisabledByDefault(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(1)})
	trans, _ := tr.Apply(model.SignalBuy, snapAt(1, 100), 0)
	if trans.Opened == nil {
		t.Fatal("with MinConfidence=0 any confidence must pass the gate")
	}
}

func TestTracker_FixedNotionalSizing(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedNotional(1000)})

	trans, _ := tr.Apply(model.SignalBuy, snapAt(1, 300), 0)
	if trans.Opened == nil || trans.Opened.Qty != 3 {
		t.Fatalf("expected qty=3 for notional 1000 at price 300, got %+v", trans.Opened)
	}

	// Price above the notional declines the entry
	tr2 := NewTracker("MRF", Config{Sizing: FixedNotional(1000)})
	trans, err := tr2.Apply(model.SignalBuy, snapAt(1, 1500), 0)
	if err != nil || trans.Opened != nil {
		t.Fatalf("unaffordable entry must be declined, got %+v err=%v", trans, err)
	}
	if tr2.State() != Flat {
		t.Errorf("state = %s, want FLAT", tr2.State())
	}
}

func TestTracker_Commission(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(10), CommissionRate: 0.001})

	tr.Apply(model.SignalBuy, snapAt(1, 100), 0)
	trans, _ := tr.Apply(model.SignalSell, snapAt(2, 110), 0)

	// gross 100, commission 0.001*(100+110)*10 = 2.1
	want := 100.0 - 2.1
	if diff := trans.Closed.PnL - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PnL = %.4f, want %.4f", trans.Closed.PnL, want)
	}
}

func TestTracker_ForceClose(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(5)})

	// Flat force-close is a no-op
	trade, err := tr.ForceClose(snapAt(1, 100))
	if err != nil || trade != nil {
		t.Fatalf("flat force-close: want (nil, nil), got %v err=%v", trade, err)
	}

	tr.Apply(model.SignalBuy, snapAt(2, 100), 0)
	trade, err = tr.ForceClose(snapAt(9, 104))
	if err != nil {
		t.Fatal(err)
	}
	if trade == nil || trade.CloseReason != model.CloseByEndOfData {
		t.Fatalf("expected end_of_data close, got %+v", trade)
	}
	if trade.ExitPrice != 104 {
		t.Errorf("ExitPrice = %.2f, want last close 104", trade.ExitPrice)
	}
	if tr.State() != Flat {
		t.Errorf("state after force-close = %s, want FLAT", tr.State())
	}
}

func TestTracker_Restore(t *testing.T) {
	tr := NewTracker("SBIN", Config{Sizing: FixedShares(1)})
	err := tr.Restore(model.Position{
		EntryDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EntryPrice: 95,
		Qty:        4,
	}, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if tr.State() != Long {
		t.Fatalf("state = %s, want LONG", tr.State())
	}

	// Restoring again violates the single-position invariant
	if err := tr.Restore(model.Position{EntryPrice: 90, Qty: 1}, 0); err == nil {
		t.Fatal("second restore must fail")
	}

	trans, _ := tr.Apply(model.SignalSell, snapAt(10, 100), 0)
	if trans.Closed == nil || trans.Closed.MLConfidence != 0.7 {
		t.Fatalf("restored confidence must carry into the trade, got %+v", trans.Closed)
	}
}

// Property check: across random signal sequences the tracker never holds
// two simultaneously open positions and open/close events strictly
// alternate.
func TestTracker_NeverTwoOpenPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	signals := []model.Signal{model.SignalBuy, model.SignalSell, model.SignalHold}

	for run := 0; run < 50; run++ {
		tr := NewTracker("SBIN", Config{Sizing: FixedShares(1)})
		openCount := 0
		for day := 0; day < 200; day++ {
			sig := signals[rng.Intn(len(signals))]
			trans, err := tr.Apply(sig, snapAt(day, 100+rng.Float64()*20), rng.Float64())
			if err != nil {
				t.Fatalf("run %d day %d: unexpected invariant error: %v", run, day, err)
			}
			if trans.Opened != nil {
				openCount++
				if openCount > 1 {
					t.Fatalf("run %d day %d: second open without close", run, day)
				}
			}
			if trans.Closed != nil {
				openCount--
				if openCount < 0 {
					t.Fatalf("run %d day %d: close without open", run, day)
				}
			}
			if (tr.State() == Long) != (openCount == 1) {
				t.Fatalf("run %d day %d: state %s disagrees with open count %d", run, day, tr.State(), openCount)
			}
		}
	}
}
