// Package live evaluates the strategy against fresh end-of-day data and
// routes resulting trades to alert and persistence sinks.
//
// The runner drives the exact same Rule and Tracker as the backtest
// engine; the only difference is where snapshots come from and where
// transitions go. Sinks are observers: a failed alert, export, or
// broadcast is logged and dropped, never rolled back into position
// state.
package live

import (
	"context"
	"log"
	"log/slog"
	"time"

	"algotradingv1/internal/backtest"
	"algotradingv1/internal/indicator"
	"algotradingv1/internal/logger"
	"algotradingv1/internal/markethours"
	"algotradingv1/internal/metrics"
	"algotradingv1/internal/mlscore"
	"algotradingv1/internal/model"
	"algotradingv1/internal/notification"
	"algotradingv1/internal/position"
	"algotradingv1/internal/ringbuf"
	"algotradingv1/internal/strategy"
)

// lookbackBuffer is extra bars fetched beyond the indicator warm-up so
// holidays and data gaps do not starve the warm-up window.
const lookbackBuffer = 30

// StateStore persists open positions across process restarts.
type StateStore interface {
	SavePosition(ctx context.Context, pos model.Position, confidence float64, entryRSI model.OptValue) error
	LoadPosition(ctx context.Context, ticker string) (pos model.Position, confidence float64, entryRSI model.OptValue, ok bool, err error)
	ClearPosition(ctx context.Context, ticker string) error
}

// Exporter appends trade records to durable local storage.
type Exporter interface {
	Append(rec model.TradeRecord) error
}

// Journal records closed trades.
type Journal interface {
	RecordTrade(ctx context.Context, t model.Trade) error
}

// Broadcaster fans trade records out to streaming subscribers.
type Broadcaster interface {
	Broadcast(rec model.TradeRecord)
}

// BarSource provides a ticker's recent daily bars.
type BarSource interface {
	Daily(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error)
}

// Sinks are the fire-and-forget destinations for trade events. Any of
// them may be nil.
type Sinks struct {
	Notifier    notification.Notifier
	Exporter    Exporter
	Journal     Journal
	Broadcaster Broadcaster
}

// Config assembles the runner's collaborators.
type Config struct {
	Rule    strategy.Rule
	Tracker position.Config
	Series  indicator.SeriesConfig

	Source BarSource
	Scorer mlscore.Scorer // optional
	State  StateStore     // optional; positions are process-local without it
	Sinks  Sinks
	Meters *metrics.Metrics // optional

	// AfterCycle is invoked when an evaluation cycle completes, with the
	// cycle's wall-clock time. Optional; used for health reporting.
	AfterCycle func(time.Time)
}

// tickerState is one ticker's tracker plus its snapshot tail. The ring
// carries the recent snapshot history across cycles; evaluation always
// reads the previous/current pair from it.
type tickerState struct {
	tracker  *position.Tracker
	tail     *ringbuf.Ring
	lastDate time.Time
}

// Runner evaluates the strategy for a universe of tickers once per
// trading day.
type Runner struct {
	cfg     Config
	tickers []string
	states  map[string]*tickerState

	// Trades closed during the current cycle, flushed into the
	// end-of-cycle digest.
	cycleTrades []model.Trade
}

// NewRunner creates a runner for the given universe.
func NewRunner(cfg Config, tickers []string) *Runner {
	if cfg.Rule == nil {
		cfg.Rule = strategy.NewRSIMACrossover(30, 70)
	}
	states := make(map[string]*tickerState, len(tickers))
	for _, ticker := range tickers {
		states[ticker] = &tickerState{
			tracker: position.NewTracker(ticker, cfg.Tracker),
			tail:    ringbuf.New(8),
		}
	}
	return &Runner{cfg: cfg, tickers: tickers, states: states}
}

// Restore reloads persisted open positions into the trackers. Call once
// before the first evaluation.
func (r *Runner) Restore(ctx context.Context) error {
	if r.cfg.State == nil {
		return nil
	}
	for _, ticker := range r.tickers {
		pos, confidence, _, ok, err := r.cfg.State.LoadPosition(ctx, ticker)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.states[ticker].tracker.Restore(pos, confidence); err != nil {
			return err
		}
		log.Printf("[live] %s: restored open position from %s", ticker, pos.EntryDate.Format("2006-01-02"))
		if r.cfg.Meters != nil {
			r.cfg.Meters.OpenPositions.Inc()
		}
	}
	return nil
}

// lookbackBars is how many daily bars a fresh evaluation needs.
func (r *Runner) lookbackBars() int {
	n := r.cfg.Series.MALongWindow
	if r.cfg.Series.MAShortWindow > n {
		n = r.cfg.Series.MAShortWindow
	}
	if r.cfg.Series.RSIPeriod+1 > n {
		n = r.cfg.Series.RSIPeriod + 1
	}
	return n + lookbackBuffer
}

// RunOnce evaluates every ticker against the latest available bar.
// Per-ticker failures are logged and skipped; the cycle always covers
// the rest of the universe.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) {
	// Calendar days over-cover trading days; the provider returns what
	// exists in the window.
	from := now.AddDate(0, 0, -r.lookbackBars()*2)

	r.cycleTrades = r.cycleTrades[:0]
	for _, ticker := range r.tickers {
		if err := r.evalTicker(ctx, ticker, from, now); err != nil {
			log.Printf("[live] %s: skipped: %v", ticker, err)
			if r.cfg.Meters != nil {
				r.cfg.Meters.FetchFailures.WithLabelValues(ticker).Inc()
			}
		}
	}
	r.sendCycleDigest(ctx)
	if r.cfg.AfterCycle != nil {
		r.cfg.AfterCycle(time.Now())
	}
}

// sendCycleDigest pushes one summary message for the trades the cycle
// closed, grouped per ticker. No trades, no message.
func (r *Runner) sendCycleDigest(ctx context.Context) {
	if r.cfg.Sinks.Notifier == nil || len(r.cycleTrades) == 0 {
		return
	}

	byTicker := make(map[string][]model.Trade)
	for _, t := range r.cycleTrades {
		byTicker[t.Ticker] = append(byTicker[t.Ticker], t)
	}
	summaries := make([]model.PerformanceSummary, 0, len(byTicker))
	for _, ticker := range r.tickers {
		if trades, ok := byTicker[ticker]; ok {
			summaries = append(summaries, backtest.Summarize(ticker, trades))
		}
	}

	if err := r.cfg.Sinks.Notifier.Send(ctx, notification.DailySummaryAlert(summaries)); err != nil {
		log.Printf("[live] summary digest failed: %v", err)
		if r.cfg.Meters != nil {
			r.cfg.Meters.AlertFailures.WithLabelValues("notifier").Inc()
		}
	}
}

func (r *Runner) evalTicker(ctx context.Context, ticker string, from, to time.Time) error {
	state := r.states[ticker]

	// One trace ID per ticker per cycle, carried through to the
	// transition events.
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(ticker, to))

	start := time.Now()
	bars, err := r.cfg.Source.Daily(ctx, ticker, from, to)
	if err != nil {
		return err
	}
	if r.cfg.Meters != nil {
		r.cfg.Meters.FetchDur.Observe(time.Since(start).Seconds())
		r.cfg.Meters.BarsFetched.WithLabelValues(ticker).Add(float64(len(bars)))
	}

	// Only snapshots for new dates enter the tail; re-running a cycle on
	// an unchanged series must not fire twice.
	fresh := false
	for _, snap := range indicator.BuildSnapshots(bars, r.cfg.Series) {
		if snap.Date.After(state.lastDate) {
			state.tail.Push(snap)
			state.lastDate = snap.Date
			fresh = true
		}
	}
	if !fresh {
		return nil
	}

	prev, curr, ok := state.tail.LastPair()
	if !ok {
		return nil
	}

	sig := r.cfg.Rule.Evaluate(prev, curr)
	if r.cfg.Meters != nil {
		r.cfg.Meters.SignalsTotal.WithLabelValues(string(sig)).Inc()
	}

	confidence := 0.0
	if r.cfg.Scorer != nil && sig == model.SignalBuy && state.tracker.State() == position.Flat {
		if f, ok := mlscore.BuildFeatures(prev, curr); ok {
			scoreStart := time.Now()
			c, err := r.cfg.Scorer.Score(ctx, f)
			if err != nil {
				// Fail closed: an unreachable scorer means no new entry today.
				log.Printf("[live] %s: ml score failed, entry skipped: %v", ticker, err)
				return nil
			}
			if r.cfg.Meters != nil {
				r.cfg.Meters.ScoreDur.Observe(time.Since(scoreStart).Seconds())
			}
			confidence = c
		}
	}

	trans, err := state.tracker.Apply(sig, curr, confidence)
	if err != nil {
		return err
	}

	if sig == model.SignalBuy && trans.Opened == nil && state.tracker.State() == position.Flat {
		if r.cfg.Meters != nil {
			r.cfg.Meters.EntriesGated.Inc()
		}
	}

	if trans.Opened != nil {
		r.onOpen(ctx, *trans.Opened, curr, confidence)
	}
	if trans.Closed != nil {
		r.onClose(ctx, *trans.Closed)
	}
	return nil
}

func (r *Runner) onOpen(ctx context.Context, pos model.Position, snap model.IndicatorSnapshot, confidence float64) {
	slog.Info("position opened", append([]any{
		slog.String("ticker", pos.Ticker),
		slog.Int64("qty", pos.Qty),
		slog.Float64("price", pos.EntryPrice),
		slog.Float64("confidence", confidence),
	}, logger.LogWithTrace(ctx)...)...)
	if r.cfg.Meters != nil {
		r.cfg.Meters.OpenPositions.Inc()
	}

	if r.cfg.State != nil {
		if err := r.cfg.State.SavePosition(ctx, pos, confidence, snap.RSI); err != nil {
			// The position stays open in memory; a restart before the next
			// successful save will not know about it.
			log.Printf("[live] %s: persist position failed: %v", pos.Ticker, err)
		}
	}

	r.emit(ctx, model.OpenRecord(pos, snap.RSI, confidence))
}

func (r *Runner) onClose(ctx context.Context, trade model.Trade) {
	slog.Info("position closed", append([]any{
		slog.String("ticker", trade.Ticker),
		slog.Int64("qty", trade.Qty),
		slog.Float64("price", trade.ExitPrice),
		slog.Float64("pnl_pct", trade.PnLPct),
		slog.String("reason", string(trade.CloseReason)),
	}, logger.LogWithTrace(ctx)...)...)
	if r.cfg.Meters != nil {
		r.cfg.Meters.OpenPositions.Dec()
		r.cfg.Meters.TradesTotal.WithLabelValues(string(trade.CloseReason)).Inc()
	}

	if r.cfg.State != nil {
		if err := r.cfg.State.ClearPosition(ctx, trade.Ticker); err != nil {
			log.Printf("[live] %s: clear position failed: %v", trade.Ticker, err)
		}
	}
	if r.cfg.Sinks.Journal != nil {
		if err := r.cfg.Sinks.Journal.RecordTrade(ctx, trade); err != nil {
			log.Printf("[live] %s: journal trade failed: %v", trade.Ticker, err)
		}
	}

	r.cycleTrades = append(r.cycleTrades, trade)
	r.emit(ctx, model.CloseRecord(trade))
}

// emit fans a trade record out to all configured sinks. Failures are
// logged, counted, and dropped.
func (r *Runner) emit(ctx context.Context, rec model.TradeRecord) {
	if r.cfg.Sinks.Exporter != nil {
		if err := r.cfg.Sinks.Exporter.Append(rec); err != nil {
			log.Printf("[live] %s: csv export failed: %v", rec.Ticker, err)
			if r.cfg.Meters != nil {
				r.cfg.Meters.AlertFailures.WithLabelValues("csv").Inc()
			}
		}
	}
	if r.cfg.Sinks.Notifier != nil {
		if err := r.cfg.Sinks.Notifier.Send(ctx, notification.TradeAlert(rec)); err != nil {
			log.Printf("[live] %s: alert failed: %v", rec.Ticker, err)
			if r.cfg.Meters != nil {
				r.cfg.Meters.AlertFailures.WithLabelValues("notifier").Inc()
			}
		}
	}
	if r.cfg.Sinks.Broadcaster != nil {
		r.cfg.Sinks.Broadcaster.Broadcast(rec)
	}
}

// Run blocks, evaluating the universe after each market close until ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Restore(ctx); err != nil {
		return err
	}

	for {
		now := time.Now()
		next := markethours.NextEvalTime(now)
		wait := time.Until(next)
		log.Printf("[live] %s", markethours.StatusString(now))
		log.Printf("[live] next evaluation at %s (%s)", next.Format("2006-01-02 15:04 MST"), wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		r.RunOnce(ctx, time.Now())
	}
}
