package mlscore

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"algotradingv1/internal/model"
)

func readySnap(rsi, maShort, maLong, close float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Ticker:  "SBIN",
		Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Close:   close,
		RSI:     model.Avail(rsi),
		MAShort: model.Avail(maShort),
		MALong:  model.Avail(maLong),
	}
}

func TestBuildFeatures(t *testing.T) {
	prev := readySnap(40, 100, 100, 100)
	curr := readySnap(45, 102, 100, 103)

	f, ok := BuildFeatures(prev, curr)
	if !ok {
		t.Fatal("expected features from ready snapshots")
	}
	if f.RSI != 45 || f.RSIChange != 5 {
		t.Errorf("rsi features: %+v", f)
	}
	if math.Abs(f.MAGapPct-2.0) > 1e-9 {
		t.Errorf("MAGapPct = %.4f, want 2.0", f.MAGapPct)
	}
	if math.Abs(f.ReturnPct-3.0) > 1e-9 {
		t.Errorf("ReturnPct = %.4f, want 3.0", f.ReturnPct)
	}
	if f.PriceAboveMAShort != 1 {
		t.Errorf("PriceAboveMAShort = %.0f, want 1", f.PriceAboveMAShort)
	}
}

func TestBuildFeatures_WarmupRefused(t *testing.T) {
	warm := readySnap(40, 100, 100, 100)
	warm.MALong = model.Unavail()
	if _, ok := BuildFeatures(warm, readySnap(45, 100, 100, 100)); ok {
		t.Fatal("warm-up snapshots must not produce features")
	}
}

func TestHTTPScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var f Features
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			t.Errorf("decode features: %v", err)
		}
		if f.Ticker != "SBIN" {
			t.Errorf("ticker = %s", f.Ticker)
		}
		json.NewEncoder(w).Encode(map[string]float64{"confidence": 0.73})
	}))
	defer srv.Close()

	got, err := NewHTTPScorer(srv.URL).Score(context.Background(), Features{Ticker: "SBIN"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.73 {
		t.Errorf("confidence = %.2f, want 0.73", got)
	}
}

func TestHTTPScorer_RejectsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"confidence": 1.7})
	}))
	defer srv.Close()

	if _, err := NewHTTPScorer(srv.URL).Score(context.Background(), Features{}); err == nil {
		t.Fatal("confidence outside [0,1] must error")
	}
}
