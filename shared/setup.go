package shared

import (
	"fmt"
	"strings"
	"time"
)

// Evidence captures the structural events and indicator state that justified a
// setup, in confirmation order.
type Evidence struct {
	// Events is the ordered list of structural events cited by the verdict.
	Events []StructuralEvent
	// Trend is the higher timeframe trend confirmation.
	Trend Trend
	// Indicator is the indicator state as of the confirming candle.
	Indicator IndicatorState
}

// Summary returns a human readable description of the evidence.
func (e *Evidence) Summary() string {
	parts := make([]string, 0, len(e.Events)+1)
	for idx := range e.Events {
		parts = append(parts, e.Events[idx].Describe())
	}
	parts = append(parts, fmt.Sprintf("htf trend %s", e.Trend.String()))

	return strings.Join(parts, ", ")
}

// Setup represents a qualifying trade setup. A setup is only constructed on a
// confirmed verdict and is immutable after creation.
type Setup struct {
	Market     string
	Direction  Direction
	Session    string
	ID         string
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Evidence   Evidence
	CreatedOn  time.Time
}

// SetupID deterministically derives a setup identity from the market,
// direction, session and a time bucket of the confirming candle's open time.
// Identical inputs always yield the identical id.
func SetupID(market string, direction Direction, session string, openTime time.Time, bucketSeconds int64) string {
	if bucketSeconds <= 0 {
		bucketSeconds = 60
	}

	bucket := openTime.Unix() / bucketSeconds
	return fmt.Sprintf("%s_%s_%s_%d", market, strings.ToUpper(direction.String()), session, bucket)
}

// Risk returns the distance between the setup entry and its stop loss.
func (s *Setup) Risk() float64 {
	switch s.Direction {
	case Buy:
		return s.Entry - s.StopLoss
	default:
		return s.StopLoss - s.Entry
	}
}
