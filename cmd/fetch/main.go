// cmd/fetch backfills daily bars from the Angel One SmartAPI into the
// local SQLite store, picking up where the last fetch left off.
//
// Usage:
//
//	go run ./cmd/fetch --tickers=SBIN,INFY --from=2022-01-01
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"algotradingv1/config"
	"algotradingv1/internal/marketdata"
	sqlitestore "algotradingv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()
	cfg.MustBrokerCreds()

	tickersFlag := flag.String("tickers", cfg.Tickers, "Comma-separated tickers to fetch")
	fromStr := flag.String("from", "", "Earliest date to fetch (YYYY-MM-DD, default 3 years ago)")
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite bar store")
	flag.Parse()

	earliest := time.Now().UTC().AddDate(-3, 0, 0)
	if *fromStr != "" {
		t, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			log.Fatalf("[fetch] invalid --from %q: %v", *fromStr, err)
		}
		earliest = t
	}

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[fetch] sqlite open failed: %v", err)
	}
	defer store.Close()

	client := marketdata.NewAngelClient(marketdata.AngelConfig{
		APIKey:     cfg.AngelAPIKey,
		ClientCode: cfg.AngelClientCode,
		Password:   cfg.AngelPassword,
		TOTPSecret: cfg.AngelTOTPSecret,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	now := time.Now().UTC()
	fetched, skipped := 0, 0
	for _, ticker := range splitTickers(*tickersFlag) {
		select {
		case <-ctx.Done():
			log.Printf("[fetch] interrupted")
			return
		default:
		}

		from := earliest
		last, err := store.LastBarTimestamp(ctx, ticker)
		if err != nil {
			log.Fatalf("[fetch] %s: last timestamp: %v", ticker, err)
		}
		if !last.IsZero() && last.After(from) {
			from = last.AddDate(0, 0, 1)
		}
		if !from.Before(now) {
			log.Printf("[fetch] %s: up to date", ticker)
			continue
		}

		bars, err := client.Daily(ctx, ticker, from, now)
		if err != nil {
			if errors.Is(err, marketdata.ErrDataUnavailable) {
				log.Printf("[fetch] %s: skipped: %v", ticker, err)
				skipped++
				continue
			}
			log.Fatalf("[fetch] %s: %v", ticker, err)
		}
		if err := store.SaveBars(ctx, bars); err != nil {
			log.Fatalf("[fetch] %s: save: %v", ticker, err)
		}
		log.Printf("[fetch] %s: stored %d bars from %s", ticker, len(bars), from.Format("2006-01-02"))
		fetched += len(bars)

		// Gentle on the broker's rate limits
		time.Sleep(300 * time.Millisecond)
	}

	log.Printf("[fetch] done: %d bars stored, %d tickers skipped", fetched, skipped)
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
