package indicator

import (
	"math"
	"strconv"
)

// Bollinger calculates Bollinger Bands: a rolling mean plus/minus k
// standard deviations (typically 20 bars, k=2). The rolling variance is
// maintained incrementally from running sums.
type Bollinger struct {
	period int
	k      float64
	buf    []float64
	idx    int
	count  int
	sum    float64
	sumSq  float64
}

// NewBollinger creates a Bollinger Bands indicator.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{
		period: period,
		k:      k,
		buf:    make([]float64, period),
	}
}

func (b *Bollinger) Name() string { return "BB_" + strconv.Itoa(b.period) }

func (b *Bollinger) Update(close float64) {
	if b.count >= b.period {
		old := b.buf[b.idx]
		b.sum -= old
		b.sumSq -= old * old
	}

	b.buf[b.idx] = close
	b.sum += close
	b.sumSq += close * close
	b.idx = (b.idx + 1) % b.period
	b.count++
}

// Value returns the middle band (rolling mean).
func (b *Bollinger) Value() float64 {
	if !b.Ready() {
		return 0
	}
	return b.sum / float64(b.period)
}

// Upper returns the upper band: mean + k*stddev.
func (b *Bollinger) Upper() float64 {
	mean, sd := b.meanStddev()
	return mean + b.k*sd
}

// Lower returns the lower band: mean − k*stddev.
func (b *Bollinger) Lower() float64 {
	mean, sd := b.meanStddev()
	return mean - b.k*sd
}

func (b *Bollinger) Ready() bool { return b.count >= b.period }

func (b *Bollinger) meanStddev() (float64, float64) {
	if !b.Ready() {
		return 0, 0
	}
	n := float64(b.period)
	mean := b.sum / n
	variance := b.sumSq/n - mean*mean
	if variance < 0 {
		// Guard against floating-point cancellation on flat series
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
