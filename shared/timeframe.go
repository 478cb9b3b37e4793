package shared

// Timeframe represents the market data time period.
type Timeframe int

const (
	// FiveMinute is the low timeframe used for structure detection.
	FiveMinute Timeframe = iota
	// OneHour is the higher timeframe used for trend context.
	OneHour
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneHour:
		return "1h"
	case FiveMinute:
		return "5m"
	default:
		return "unknown"
	}
}
