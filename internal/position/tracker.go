// Package position implements the per-ticker position state machine.
//
// A Tracker holds at most one open position and advances strictly forward
// in time, applying signal verdicts plus optional ML confidence gating.
// Both the backtest engine and the live runner drive the same Tracker, so
// simulated and real-time transitions can never diverge.
package position

import (
	"errors"
	"fmt"

	"algotradingv1/internal/model"
)

// ErrInvalidTransition indicates the tracker was asked to open while a
// position is already open, or close while flat. This is a programming
// fault, never a data condition: the transition table below makes it
// unreachable, and a run that detects it must abort loudly for that
// ticker rather than overwrite state.
var ErrInvalidTransition = errors.New("position: invalid state transition")

// State is the tracker's position state.
type State string

const (
	Flat State = "FLAT"
	Long State = "LONG"
)

// Config holds tracker behavior knobs.
type Config struct {
	// Sizing computes the share quantity for a new position. Required.
	Sizing SizingPolicy

	// MinConfidence gates entries on the ML score. Zero disables the gate
	// (any confidence, including an absent scorer's 0.0, is accepted).
	// Exits are never gated.
	MinConfidence float64

	// CommissionRate is a per-side fractional rate (e.g. 0.001 = 10 bps)
	// deducted from trade P&L. Zero by default.
	CommissionRate float64
}

// Transition describes the outcome of one Apply step. At most one of
// Opened/Closed is set; both nil means no state change.
type Transition struct {
	Opened *model.Position
	Closed *model.Trade
}

// Tracker is the FLAT/LONG state machine for a single ticker.
// Not safe for concurrent use; each ticker's run owns its own Tracker.
type Tracker struct {
	ticker string
	cfg    Config

	state State
	pos   *model.Position

	// Entry context carried into the closing Trade
	entryConfidence float64
	entryRSI        model.OptValue
}

// NewTracker creates a Tracker for one ticker, starting FLAT.
func NewTracker(ticker string, cfg Config) *Tracker {
	if cfg.Sizing == nil {
		cfg.Sizing = FixedShares(1)
	}
	return &Tracker{ticker: ticker, cfg: cfg, state: Flat}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// OpenPosition returns a copy of the open position, if any.
func (t *Tracker) OpenPosition() (model.Position, bool) {
	if t.pos == nil {
		return model.Position{}, false
	}
	return *t.pos, true
}

// Restore seeds the tracker with a previously persisted open position.
// Used by the live runner after a process restart. Restoring onto a
// non-FLAT tracker is an invariant violation.
func (t *Tracker) Restore(pos model.Position, confidence float64) error {
	if t.state != Flat || t.pos != nil {
		return fmt.Errorf("%w: restore onto %s tracker", ErrInvalidTransition, t.state)
	}
	p := pos
	p.Ticker = t.ticker
	p.Open = true
	t.pos = &p
	t.state = Long
	t.entryConfidence = confidence
	t.entryRSI = model.Unavail()
	return nil
}

// Apply advances the state machine one step with the signal computed for
// snap. confidence is the ML score for this step (0 when no scorer is
// configured). HOLD, a gated BUY, BUY while LONG, and SELL while FLAT are
// all idempotent no-ops.
func (t *Tracker) Apply(sig model.Signal, snap model.IndicatorSnapshot, confidence float64) (Transition, error) {
	switch sig {
	case model.SignalBuy:
		if t.state != Flat {
			return Transition{}, nil
		}
		if confidence < t.cfg.MinConfidence {
			return Transition{}, nil
		}
		qty := t.cfg.Sizing(snap.Close)
		if qty <= 0 {
			// Sizing policy declined the entry (e.g. notional below one share)
			return Transition{}, nil
		}
		pos, err := t.open(snap, qty, confidence)
		if err != nil {
			return Transition{}, err
		}
		return Transition{Opened: pos}, nil

	case model.SignalSell:
		if t.state != Long {
			return Transition{}, nil
		}
		trade, err := t.close(snap, model.CloseBySignal)
		if err != nil {
			return Transition{}, err
		}
		return Transition{Closed: trade}, nil

	default:
		return Transition{}, nil
	}
}

// ForceClose closes any open position at the given snapshot's close price,
// marking the trade as closed by end-of-data. Returns (nil, nil) if flat.
func (t *Tracker) ForceClose(snap model.IndicatorSnapshot) (*model.Trade, error) {
	if t.state != Long {
		return nil, nil
	}
	return t.close(snap, model.CloseByEndOfData)
}

func (t *Tracker) open(snap model.IndicatorSnapshot, qty int64, confidence float64) (*model.Position, error) {
	if t.pos != nil {
		return nil, fmt.Errorf("%w: open %s while position from %s still open",
			ErrInvalidTransition, t.ticker, t.pos.EntryDate.Format("2006-01-02"))
	}
	t.pos = &model.Position{
		Ticker:     t.ticker,
		EntryDate:  snap.Date,
		EntryPrice: snap.Close,
		Qty:        qty,
		Open:       true,
	}
	t.state = Long
	t.entryConfidence = confidence
	t.entryRSI = snap.RSI
	out := *t.pos
	return &out, nil
}

func (t *Tracker) close(snap model.IndicatorSnapshot, reason model.CloseReason) (*model.Trade, error) {
	if t.pos == nil {
		return nil, fmt.Errorf("%w: close %s while flat", ErrInvalidTransition, t.ticker)
	}

	pos := t.pos
	pos.Open = false
	pos.ExitDate = snap.Date
	pos.ExitPrice = snap.Close

	entryValue := pos.EntryPrice * float64(pos.Qty)
	gross := (pos.ExitPrice - pos.EntryPrice) * float64(pos.Qty)
	commission := t.cfg.CommissionRate * (pos.EntryPrice + pos.ExitPrice) * float64(pos.Qty)
	pnl := gross - commission

	trade := &model.Trade{
		Ticker:       pos.Ticker,
		EntryDate:    pos.EntryDate,
		EntryPrice:   pos.EntryPrice,
		ExitDate:     pos.ExitDate,
		ExitPrice:    pos.ExitPrice,
		Qty:          pos.Qty,
		PnL:          pnl,
		PnLPct:       pnl / entryValue * 100.0,
		HoldingDays:  int(pos.ExitDate.Sub(pos.EntryDate).Hours() / 24),
		CloseReason:  reason,
		MLConfidence: t.entryConfidence,
		EntryRSI:     t.entryRSI,
		ExitRSI:      snap.RSI,
	}

	t.pos = nil
	t.state = Flat
	t.entryConfidence = 0
	t.entryRSI = model.OptValue{}
	return trade, nil
}
