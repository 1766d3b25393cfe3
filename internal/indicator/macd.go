package indicator

import "strconv"

// MACD calculates Moving Average Convergence Divergence: the difference of
// a fast and a slow EMA, plus a signal line (EMA of the MACD line).
// Standard parameters are 12/26/9.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given EMA periods.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string {
	return "MACD_" + strconv.Itoa(m.fast.period) + "_" + strconv.Itoa(m.slow.period)
}

func (m *MACD) Update(close float64) {
	m.fast.Update(close)
	m.slow.Update(close)
	if m.fast.Ready() && m.slow.Ready() {
		// The signal line warms up on MACD values, not closes
		m.signal.Update(m.fast.Value() - m.slow.Value())
	}
}

// Value returns the MACD line (fast EMA − slow EMA).
func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// SignalValue returns the signal line. Only meaningful once SignalReady.
func (m *MACD) SignalValue() float64 { return m.signal.Value() }

func (m *MACD) Ready() bool { return m.fast.Ready() && m.slow.Ready() }

// SignalReady reports whether the signal line has warmed up.
func (m *MACD) SignalReady() bool { return m.signal.Ready() }
