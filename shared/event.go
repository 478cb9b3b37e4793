package shared

import (
	"fmt"
	"time"
)

// EventKind represents the type of a structural event.
type EventKind int

const (
	LiquiditySweep EventKind = iota
	WickRejection
	MarketStructureShift
	FairValueGap
)

// String stringifies the provided event kind.
func (k EventKind) String() string {
	switch k {
	case LiquiditySweep:
		return "liquidity sweep"
	case WickRejection:
		return "wick rejection"
	case MarketStructureShift:
		return "market structure shift"
	case FairValueGap:
		return "fair value gap pullback"
	default:
		return "unknown"
	}
}

// StructuralEvent represents a confirmed multi-candle structural occurrence on
// a market. Events are timestamped to the candle that confirmed them.
type StructuralEvent struct {
	Kind      EventKind
	Market    string
	Timeframe Timeframe
	Sentiment Sentiment
	// Level is the price level defining the event - the swept swing for a
	// liquidity sweep, the broken swing for a structure shift, the tagged
	// band extreme for a wick rejection.
	Level float64
	// GapHigh and GapLow bound the imbalance range for fair value gap events.
	GapHigh float64
	GapLow  float64
	Date    time.Time
}

// Describe returns a short human readable description of the event.
func (e *StructuralEvent) Describe() string {
	switch e.Kind {
	case FairValueGap:
		return fmt.Sprintf("%s %s (%.4f - %.4f)", e.Sentiment.String(), e.Kind.String(), e.GapLow, e.GapHigh)
	default:
		return fmt.Sprintf("%s %s @ %.4f", e.Sentiment.String(), e.Kind.String(), e.Level)
	}
}

// IsPrimary reports whether the event can anchor a setup on its own.
func (e *StructuralEvent) IsPrimary() bool {
	return e.Kind == LiquiditySweep || e.Kind == MarketStructureShift
}

// IsSupporting reports whether the event qualifies as a supporting confirmation.
func (e *StructuralEvent) IsSupporting() bool {
	return e.Kind == WickRejection || e.Kind == FairValueGap
}
