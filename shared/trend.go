package shared

// Trend represents the higher timeframe market trend.
type Trend int

const (
	NeutralTrend Trend = iota
	BullishTrend
	BearishTrend
)

// String stringifies the provided trend.
func (t Trend) String() string {
	switch t {
	case BullishTrend:
		return "bull"
	case BearishTrend:
		return "bear"
	default:
		return "neutral"
	}
}

// Supports reports whether the trend supports the provided direction.
func (t Trend) Supports(direction Direction) bool {
	switch direction {
	case Buy:
		return t == BullishTrend
	case Sell:
		return t == BearishTrend
	default:
		return false
	}
}

// IndicatorState is a snapshot of derived indicator values computed as of the
// latest closed candle of a series. It is recomputed on every new candle and
// never persisted independently of the candle it describes.
type IndicatorState struct {
	// Oscillator fast and slow lines (smoothed relative strength).
	OscillatorFast  float64
	OscillatorSlow  float64
	OscillatorValid bool

	// Bollinger band boundaries.
	BandUpper  float64
	BandMiddle float64
	BandLower  float64
	BandsValid bool

	// Trend is the higher timeframe trend at snapshot time.
	Trend Trend
}
