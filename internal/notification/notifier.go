// Package notification provides alert delivery to external channels
// (Telegram, webhooks) for trading events.
//
// Notifiers are observers, not participants: a failed delivery is logged
// and optionally retried at this boundary, but never reaches back into
// the engine's position state.
package notification

import (
	"context"
	"fmt"
	"log"

	"algotradingv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// TradeAlert renders a trade record as a signal alert in the fixed
// "TRADING ALERT" layout the downstream chat consumers expect.
func TradeAlert(rec model.TradeRecord) Alert {
	rsi := "n/a"
	if rec.RSI.Valid {
		rsi = fmt.Sprintf("%.1f", rec.RSI.Value)
	}
	msg := fmt.Sprintf("Ticker: %s\nAction: %s\nPrice: %.2f\nRSI: %s\nTime: %s",
		rec.Ticker, rec.Action, rec.Price, rsi, rec.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	if rec.Confidence > 0 {
		msg += fmt.Sprintf("\nML Confidence: %.1f%%", rec.Confidence*100)
	}
	if rec.Action == model.SignalSell {
		msg += fmt.Sprintf("\nP&L: %.2f%% over %d days", rec.PnLPct, rec.HoldingDays)
	}

	level := AlertInfo
	if rec.Action == model.SignalSell && rec.PnLPct < 0 {
		level = AlertWarning
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("TRADING ALERT: %s %s", rec.Action, rec.Ticker),
		Message: msg,
	}
}

// DailySummaryAlert renders per-ticker performance summaries as one
// end-of-run digest message.
func DailySummaryAlert(summaries []model.PerformanceSummary) Alert {
	msg := ""
	for _, s := range summaries {
		status := "NO TRADES"
		if s.NumTrades > 0 {
			if s.TotalReturnPct >= 0 {
				status = "PROFIT"
			} else {
				status = "LOSS"
			}
		}
		winRate := "n/a"
		if s.WinRatePct.Valid {
			winRate = fmt.Sprintf("%.1f%%", s.WinRatePct.Value)
		}
		msg += fmt.Sprintf("%s: %s  return=%.2f%%  win=%s  trades=%d\n",
			s.Ticker, status, s.TotalReturnPct, winRate, s.NumTrades)
	}
	return Alert{
		Level:   AlertInfo,
		Title:   "DAILY TRADING SUMMARY",
		Message: msg,
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
