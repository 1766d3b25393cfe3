package indicator

import "algotradingv1/internal/model"

// SeriesConfig holds the indicator windows used to build snapshots.
type SeriesConfig struct {
	RSIPeriod     int
	MAShortWindow int
	MALongWindow  int

	// Optional extras. Zero periods disable them.
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerWindow int
	BollingerK      float64
}

// DefaultSeriesConfig mirrors the standard daily setup: RSI 14, MA 20/50,
// MACD 12/26/9, Bollinger 20/2.
func DefaultSeriesConfig() SeriesConfig {
	return SeriesConfig{
		RSIPeriod:       14,
		MAShortWindow:   20,
		MALongWindow:    50,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		BollingerK:      2.0,
	}
}

// BuildSnapshots converts an ordered daily bar series into one aligned
// IndicatorSnapshot per bar. Bars must already be validated (strictly
// increasing dates). Indicators still warming up are marked unavailable,
// never emitted as zero.
func BuildSnapshots(bars []model.PriceBar, cfg SeriesConfig) []model.IndicatorSnapshot {
	rsi := NewRSI(cfg.RSIPeriod)
	maShort := NewSMA(cfg.MAShortWindow)
	maLong := NewSMA(cfg.MALongWindow)

	var macd *MACD
	if cfg.MACDFast > 0 && cfg.MACDSlow > 0 && cfg.MACDSignal > 0 {
		macd = NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	}
	var boll *Bollinger
	if cfg.BollingerWindow > 0 {
		boll = NewBollinger(cfg.BollingerWindow, cfg.BollingerK)
	}

	snaps := make([]model.IndicatorSnapshot, 0, len(bars))
	for _, bar := range bars {
		rsi.Update(bar.Close)
		maShort.Update(bar.Close)
		maLong.Update(bar.Close)

		snap := model.IndicatorSnapshot{
			Ticker:  bar.Ticker,
			Date:    bar.Date,
			Close:   bar.Close,
			RSI:     optFrom(rsi),
			MAShort: optFrom(maShort),
			MALong:  optFrom(maLong),
		}

		if macd != nil {
			macd.Update(bar.Close)
			if macd.Ready() {
				snap.MACD = model.Avail(macd.Value())
			}
			if macd.SignalReady() {
				snap.MACDSignal = model.Avail(macd.SignalValue())
			}
		}
		if boll != nil {
			boll.Update(bar.Close)
			if boll.Ready() {
				snap.BollUpper = model.Avail(boll.Upper())
				snap.BollLower = model.Avail(boll.Lower())
			}
		}

		snaps = append(snaps, snap)
	}
	return snaps
}

func optFrom(ind Indicator) model.OptValue {
	if !ind.Ready() {
		return model.Unavail()
	}
	return model.Avail(ind.Value())
}
