// cmd/backtest replays historical daily bars through the strategy rule
// and position tracker, printing per-ticker trade ledgers and
// performance summaries.
//
// Usage:
//
//	go run ./cmd/backtest --tickers=SBIN,INFY --from=2023-01-01 --to=2024-12-31
//	go run ./cmd/backtest --source=angel --ml-url=http://localhost:5000/predict
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"algotradingv1/config"
	"algotradingv1/internal/backtest"
	"algotradingv1/internal/export"
	"algotradingv1/internal/indicator"
	"algotradingv1/internal/marketdata"
	"algotradingv1/internal/mlscore"
	"algotradingv1/internal/model"
	"algotradingv1/internal/notification"
	"algotradingv1/internal/position"
	"algotradingv1/internal/strategy"
	sqlitestore "algotradingv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()

	tickersFlag := flag.String("tickers", cfg.Tickers, "Comma-separated tickers to backtest")
	fromStr := flag.String("from", "", "Start date (YYYY-MM-DD, default 2 years ago)")
	toStr := flag.String("to", "", "End date (YYYY-MM-DD, default today)")
	source := flag.String("source", "sqlite", "Bar source: sqlite (local store) or angel (broker API)")
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite bar store")
	summaryCSV := flag.String("summary-csv", "", "Write per-ticker summaries to this CSV file")
	mlURL := flag.String("ml-url", cfg.MLServiceURL, "ML scoring service URL (empty disables scoring)")
	minConf := flag.Float64("min-confidence", cfg.MLMinConfidence, "Minimum ML confidence for entries (0 disables the gate)")
	notional := flag.Float64("notional", cfg.TradeNotional, "Per-trade notional for position sizing")
	commission := flag.Float64("commission", cfg.CommissionRate, "Per-side commission rate (e.g. 0.001 = 10 bps)")
	flag.Parse()

	from, to := parseRange(*fromStr, *toStr)
	tickers := splitTickers(*tickersFlag)
	if len(tickers) == 0 {
		log.Fatal("[backtest] no tickers specified")
	}

	provider, cleanup := buildProvider(cfg, *source, *dbPath)
	defer cleanup()

	var scorer mlscore.Scorer
	if *mlURL != "" {
		scorer = mlscore.NewHTTPScorer(*mlURL)
	}

	engine := backtest.NewEngine(backtest.Config{
		Rule: strategy.NewRSIMACrossover(cfg.RSIOversold, cfg.RSIOverbought),
		Tracker: position.Config{
			Sizing:         position.FixedNotional(*notional),
			MinConfidence:  *minConf,
			CommissionRate: *commission,
		},
		Series: indicator.SeriesConfig{
			RSIPeriod:       cfg.RSIPeriod,
			MAShortWindow:   cfg.MAShortWindow,
			MALongWindow:    cfg.MALongWindow,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			BollingerWindow: 20,
			BollingerK:      2.0,
		},
		Scorer: scorer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log.Printf("[backtest] %d tickers, %s to %s", len(tickers), from.Format("2006-01-02"), to.Format("2006-01-02"))
	start := time.Now()
	outcomes := engine.RunUniverse(ctx, provider, tickers, from, to)

	var summaries []model.PerformanceSummary
	var allTrades []model.Trade
	ran, skipped := 0, 0
	for _, o := range outcomes {
		if o.Err != nil {
			skipped++
			continue
		}
		ran++
		allTrades = append(allTrades, o.Trades...)
		summaries = append(summaries, o.Summary)
		printOutcome(o)
	}
	if len(summaries) > 0 {
		summaries = append(summaries, backtest.SummarizeAll(allTrades))
	}

	sendDigest(ctx, cfg, summaries)

	if *summaryCSV != "" && len(summaries) > 0 {
		if err := export.WriteSummaries(*summaryCSV, summaries); err != nil {
			log.Printf("[backtest] summary export failed: %v", err)
		} else {
			log.Printf("[backtest] summaries written to %s", *summaryCSV)
		}
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Tickers run:     %-18d ║\n", ran)
	fmt.Printf("║  Tickers skipped: %-18d ║\n", skipped)
	fmt.Printf("║  Trades closed:   %-18d ║\n", len(allTrades))
	fmt.Printf("║  Elapsed:         %-18s ║\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}

// sendDigest pushes the per-ticker summaries (plus the ALL row) to
// Telegram when credentials are configured. Best-effort: a failed send
// never fails the run.
func sendDigest(ctx context.Context, cfg *config.Config, summaries []model.PerformanceSummary) {
	if len(summaries) == 0 || cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		return
	}
	notifier := notification.NewRetryingNotifier(
		notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID),
		3, 2*time.Second,
	)
	if err := notifier.Send(ctx, notification.DailySummaryAlert(summaries)); err != nil {
		log.Printf("[backtest] summary alert failed: %v", err)
		return
	}
	log.Println("[backtest] summary digest sent to telegram")
}

func buildProvider(cfg *config.Config, source, dbPath string) (marketdata.Provider, func()) {
	switch source {
	case "sqlite":
		store, err := sqlitestore.New(sqlitestore.Config{DBPath: dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		return store, func() { store.Close() }
	case "angel":
		cfg.MustBrokerCreds()
		client := marketdata.NewAngelClient(marketdata.AngelConfig{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		})
		return client, func() {}
	default:
		log.Fatalf("[backtest] unknown source %q (want sqlite or angel)", source)
		return nil, nil
	}
}

func printOutcome(o backtest.Outcome) {
	s := o.Summary
	winRate := "n/a"
	if s.WinRatePct.Valid {
		winRate = fmt.Sprintf("%.1f%%", s.WinRatePct.Value)
	}
	fmt.Printf("\n%s: return=%.2f%% trades=%d win=%s avg_hold=%.1fd max_dd=%.2f%%\n",
		o.Ticker, s.TotalReturnPct, s.NumTrades, winRate, s.AvgHoldingDays, s.MaxDrawdownPct)
	for _, t := range o.Trades {
		marker := ""
		if t.CloseReason == model.CloseByEndOfData {
			marker = " [eod]"
		}
		fmt.Printf("  %s -> %s  %8.2f -> %8.2f  qty=%-5d pnl=%7.2f%%  %dd%s\n",
			t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
			t.EntryPrice, t.ExitPrice, t.Qty, t.PnLPct, t.HoldingDays, marker)
	}
}

func parseRange(fromStr, toStr string) (time.Time, time.Time) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(-2, 0, 0)
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			log.Fatalf("[backtest] invalid --from %q: %v", fromStr, err)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			log.Fatalf("[backtest] invalid --to %q: %v", toStr, err)
		}
		to = t
	}
	if !from.Before(to) {
		log.Fatalf("[backtest] --from %s must precede --to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return from, to
}

func splitTickers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
