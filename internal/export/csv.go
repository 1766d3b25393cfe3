// Package export writes trade logs and backtest summaries to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"algotradingv1/internal/model"
)

// TradeLogWriter appends trade records to a CSV file. The header row is
// written only when the file is created or empty, so repeated runs
// against the same path keep a single header.
type TradeLogWriter struct {
	mu   sync.Mutex
	path string
}

// NewTradeLogWriter creates a writer for the given path. The file is
// opened lazily on first Append.
func NewTradeLogWriter(path string) *TradeLogWriter {
	return &TradeLogWriter{path: path}
}

// Append writes one record, creating the file and header as needed.
func (w *TradeLogWriter) Append(rec model.TradeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", w.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("export: stat %s: %w", w.path, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(model.TradeRecordHeader); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}
	if err := cw.Write(rec.Row()); err != nil {
		return fmt.Errorf("export: write record: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush %s: %w", w.path, err)
	}
	return nil
}

var summaryHeader = []string{
	"ticker", "total_return_pct", "win_rate_pct", "num_trades", "avg_holding_days", "max_drawdown_pct",
}

// WriteSummaries writes per-ticker performance summaries to path,
// replacing any existing file.
func WriteSummaries(path string, summaries []model.PerformanceSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, s := range summaries {
		winRate := ""
		if s.WinRatePct.Valid {
			winRate = strconv.FormatFloat(s.WinRatePct.Value, 'f', 2, 64)
		}
		row := []string{
			s.Ticker,
			strconv.FormatFloat(s.TotalReturnPct, 'f', 4, 64),
			winRate,
			strconv.Itoa(s.NumTrades),
			strconv.FormatFloat(s.AvgHoldingDays, 'f', 2, 64),
			strconv.FormatFloat(s.MaxDrawdownPct, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write %s: %w", s.Ticker, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush %s: %w", path, err)
	}
	return nil
}
