package engine

import (
	"smartmoney/shared"
)

// Verdict is the outcome of a confirmation pass: a trade direction, the
// structural events cited for it and the anchor event placing the stop loss.
type Verdict struct {
	// Direction is the confirmed trade direction.
	Direction shared.Direction
	// Anchor is the primary event whose level places the stop loss.
	Anchor shared.StructuralEvent
	// Events are the structural events cited by the verdict, oldest first.
	Events []shared.StructuralEvent
}

// Confirm evaluates the recent structural events of a market against its
// higher timeframe trend. A verdict requires a primary event and a supporting
// confirmation sharing one sentiment, aligned with the trend. Conflicting
// sentiments within the window yield no verdict, regardless of how strong
// either side looks. Returns nil when nothing qualifies.
func Confirm(events []shared.StructuralEvent, trend shared.Trend) *Verdict {
	var hasBullish, hasBearish bool
	for idx := range events {
		switch events[idx].Sentiment {
		case shared.Bullish:
			hasBullish = true
		case shared.Bearish:
			hasBearish = true
		}
	}
	if hasBullish && hasBearish {
		return nil
	}

	var primary, supporting bool
	var anchor *shared.StructuralEvent
	for idx := range events {
		event := &events[idx]
		switch {
		case event.IsPrimary():
			primary = true
			// The stop loss anchors to the most recent sweep, falling back
			// to the most recent structure shift.
			if anchor == nil || event.Kind == shared.LiquiditySweep ||
				anchor.Kind != shared.LiquiditySweep {
				anchor = event
			}
		case event.IsSupporting():
			supporting = true
		}
	}
	if !primary || !supporting {
		return nil
	}

	var direction shared.Direction
	switch anchor.Sentiment {
	case shared.Bullish:
		direction = shared.Buy
	case shared.Bearish:
		direction = shared.Sell
	default:
		return nil
	}

	if !trend.Supports(direction) {
		return nil
	}

	return &Verdict{
		Direction: direction,
		Anchor:    *anchor,
		Events:    events,
	}
}
