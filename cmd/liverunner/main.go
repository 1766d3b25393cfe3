// cmd/liverunner is the long-running daily trading loop: after each
// market close it fetches fresh bars, evaluates the strategy, updates
// position state in Redis, journals trades to SQLite, and pushes alerts
// to Telegram and the WebSocket stream.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algotradingv1/config"
	"algotradingv1/internal/export"
	"algotradingv1/internal/gateway"
	"algotradingv1/internal/indicator"
	"algotradingv1/internal/live"
	"algotradingv1/internal/logger"
	"algotradingv1/internal/marketdata"
	"algotradingv1/internal/metrics"
	"algotradingv1/internal/mlscore"
	"algotradingv1/internal/model"
	"algotradingv1/internal/notification"
	"algotradingv1/internal/position"
	"algotradingv1/internal/strategy"
	redisstore "algotradingv1/internal/store/redis"
	sqlitestore "algotradingv1/internal/store/sqlite"
)

// streamSinks fans trade records out to the WS hub and the Redis
// trades channel.
type streamSinks struct {
	hub   *gateway.Hub
	state *redisstore.StateStore
}

func (s *streamSinks) Broadcast(rec model.TradeRecord) {
	s.hub.Broadcast(rec)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.state.PublishTradeEvent(ctx, rec)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	slogger := logger.Init("liverunner", slog.LevelInfo)
	slogger.Info("starting")

	cfg := config.Load()
	cfg.MustBrokerCreds()
	tickers := cfg.ParseTickers()

	// ---- Market data ----
	client := marketdata.NewAngelClient(marketdata.AngelConfig{
		APIKey:     cfg.AngelAPIKey,
		ClientCode: cfg.AngelClientCode,
		Password:   cfg.AngelPassword,
		TOTPSecret: cfg.AngelTOTPSecret,
	})

	// ---- Stores ----
	state, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[liverunner] redis: %v", err)
	}
	defer state.Close()

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[liverunner] sqlite: %v", err)
	}
	defer store.Close()

	// ---- Notifiers ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewRetryingNotifier(
			notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID),
			3, 2*time.Second,
		)
		log.Println("[liverunner] telegram alerts enabled")
	} else {
		log.Println("[liverunner] telegram not configured, alerts log only")
	}

	// ---- Alert stream gateway ----
	hub := gateway.NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	gatewaySrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		log.Printf("[liverunner] alert stream on %s/ws", cfg.GatewayAddr)
		if err := gatewaySrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[liverunner] gateway server error: %v", err)
		}
	}()

	// ---- Metrics and health ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meters := metrics.New()
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, state.Client(), store.DB(), 30*time.Second)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- ML gate ----
	var scorer mlscore.Scorer
	if cfg.MLServiceURL != "" {
		scorer = mlscore.NewHTTPScorer(cfg.MLServiceURL)
		log.Printf("[liverunner] ml gate enabled, min confidence %.2f", cfg.MLMinConfidence)
	}

	runner := live.NewRunner(live.Config{
		Rule: strategy.NewRSIMACrossover(cfg.RSIOversold, cfg.RSIOverbought),
		Tracker: position.Config{
			Sizing:         position.FixedNotional(cfg.TradeNotional),
			MinConfidence:  cfg.MLMinConfidence,
			CommissionRate: cfg.CommissionRate,
		},
		Series: indicator.SeriesConfig{
			RSIPeriod:     cfg.RSIPeriod,
			MAShortWindow: cfg.MAShortWindow,
			MALongWindow:  cfg.MALongWindow,
		},
		Source: client,
		Scorer: scorer,
		State:  state,
		Sinks: live.Sinks{
			Notifier:    notifier,
			Exporter:    export.NewTradeLogWriter(cfg.TradeLogPath),
			Journal:     store,
			Broadcaster: &streamSinks{hub: hub, state: state},
		},
		Meters:     meters,
		AfterCycle: health.SetLastRunAt,
	}, tickers)

	// ---- Signal handling ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[liverunner] received %v, shutting down", sig)
		cancel()
	}()

	log.Printf("[liverunner] running %d tickers: %v", len(tickers), tickers)
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("[liverunner] runner stopped: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gatewaySrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Println("[liverunner] stopped")
}
