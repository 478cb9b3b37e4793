package structure

import (
	"time"

	"smartmoney/shared"
)

const (
	// swingConfirmationSpan is the number of candles needed to confirm a swing
	// point, two on each side of the candidate.
	swingConfirmationSpan = 5
	// maxTrackedSwings is the maximum number of swing points tracked per side.
	maxTrackedSwings = 4
	// maxLiveSwings bounds sweep detection to the most recent unswept swings,
	// older swing points are stale and ignored.
	maxLiveSwings = 2
)

// SwingKind represents the side of a swing point.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

// String stringifies the provided swing kind.
func (k SwingKind) String() string {
	switch k {
	case SwingHigh:
		return "swing high"
	case SwingLow:
		return "swing low"
	default:
		return "unknown"
	}
}

// Swing represents a confirmed swing point.
type Swing struct {
	Price float64
	Kind  SwingKind
	Date  time.Time
	Swept bool
}

// confirmSwing checks whether the middle candle of the provided span is a
// confirmed swing point on the requested side. The span is expected to hold
// swingConfirmationSpan candles ordered by open time.
func confirmSwing(span []*shared.Candlestick, kind SwingKind) *Swing {
	if len(span) != swingConfirmationSpan {
		return nil
	}

	mid := span[swingConfirmationSpan/2]
	for idx := range span {
		if idx == swingConfirmationSpan/2 {
			continue
		}

		switch kind {
		case SwingHigh:
			if span[idx].High >= mid.High {
				return nil
			}
		case SwingLow:
			if span[idx].Low <= mid.Low {
				return nil
			}
		}
	}

	swing := &Swing{Kind: kind, Date: mid.Date}
	switch kind {
	case SwingHigh:
		swing.Price = mid.High
	case SwingLow:
		swing.Price = mid.Low
	}

	return swing
}

// liveSwings returns the most recent unswept swings, newest first, capped at
// maxLiveSwings.
func liveSwings(swings []*Swing) []*Swing {
	live := make([]*Swing, 0, maxLiveSwings)
	for idx := len(swings) - 1; idx >= 0 && len(live) < maxLiveSwings; idx-- {
		if swings[idx].Swept {
			continue
		}

		live = append(live, swings[idx])
	}

	return live
}
