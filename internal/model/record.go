package model

import (
	"strconv"
	"time"
)

// TradeRecord is the structured record handed to notification and
// persistence sinks on every tracker transition. The column set is a
// stable schema: downstream CSV consumers and alert templates rely on
// the names and order staying fixed.
type TradeRecord struct {
	Ticker      string    `json:"ticker"`
	Action      Signal    `json:"action"`
	Price       float64   `json:"price"`
	RSI         OptValue  `json:"rsi"`
	Timestamp   time.Time `json:"timestamp"`
	Confidence  float64   `json:"confidence"`
	HoldingDays int       `json:"holding_days"`
	PnLPct      float64   `json:"pnl_pct"`
}

// TradeRecordHeader is the fixed CSV header row.
var TradeRecordHeader = []string{
	"ticker", "action", "price", "rsi", "timestamp", "confidence", "holding_days", "pnl_pct",
}

// Row renders the record as CSV fields in header order.
func (r *TradeRecord) Row() []string {
	rsi := ""
	if r.RSI.Valid {
		rsi = strconv.FormatFloat(r.RSI.Value, 'f', 2, 64)
	}
	return []string{
		r.Ticker,
		string(r.Action),
		strconv.FormatFloat(r.Price, 'f', 2, 64),
		rsi,
		r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		strconv.Itoa(r.HoldingDays),
		strconv.FormatFloat(r.PnLPct, 'f', 4, 64),
	}
}

// OpenRecord builds the sink record for a newly opened position.
func OpenRecord(pos Position, rsi OptValue, confidence float64) TradeRecord {
	return TradeRecord{
		Ticker:     pos.Ticker,
		Action:     SignalBuy,
		Price:      pos.EntryPrice,
		RSI:        rsi,
		Timestamp:  pos.EntryDate,
		Confidence: confidence,
	}
}

// CloseRecord builds the sink record for a closed trade.
func CloseRecord(t Trade) TradeRecord {
	return TradeRecord{
		Ticker:      t.Ticker,
		Action:      SignalSell,
		Price:       t.ExitPrice,
		RSI:         t.ExitRSI,
		Timestamp:   t.ExitDate,
		Confidence:  t.MLConfidence,
		HoldingDays: t.HoldingDays,
		PnLPct:      t.PnLPct,
	}
}
