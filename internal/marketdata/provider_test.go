package marketdata

import (
	"errors"
	"testing"
	"time"

	"algotradingv1/internal/model"
)

func barAt(day int) model.PriceBar {
	return model.PriceBar{
		Ticker: "SBIN",
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close:  100,
	}
}

func TestValidateSeries(t *testing.T) {
	ok := []model.PriceBar{barAt(0), barAt(1), barAt(2)}
	if err := ValidateSeries("SBIN", ok, 3); err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}

	if err := ValidateSeries("SBIN", nil, 1); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("empty series: want ErrDataUnavailable, got %v", err)
	}

	if err := ValidateSeries("SBIN", ok, 50); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("short series: want ErrDataUnavailable, got %v", err)
	}

	dup := []model.PriceBar{barAt(0), barAt(1), barAt(1)}
	if err := ValidateSeries("SBIN", dup, 1); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("duplicate date: want ErrDataUnavailable, got %v", err)
	}

	backwards := []model.PriceBar{barAt(2), barAt(1)}
	if err := ValidateSeries("SBIN", backwards, 1); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("non-increasing dates: want ErrDataUnavailable, got %v", err)
	}
}
