package indicator

import "smartmoney/shared"

// EMA returns the exponential moving average of the provided values, seeded
// with a simple moving average of the first period values. The ok flag is
// false while the window holds insufficient data.
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	var seed float64
	for idx := range period {
		seed += values[idx]
	}
	seed /= float64(period)

	ema := seed
	smoothing := 2 / float64(period+1)
	for idx := period; idx < len(values); idx++ {
		ema = values[idx]*smoothing + ema*(1-smoothing)
	}

	return ema, true
}

// TrendDirection classifies the latest close relative to an exponential moving
// average of the provided closes. Closes within the tolerance band around the
// average classify as neutral to avoid flip-flopping on noise. The tolerance
// is a percentage of the average.
func TrendDirection(closes []float64, emaPeriod int, tolerancePercent float64) shared.Trend {
	ema, ok := EMA(closes, emaPeriod)
	if !ok {
		return shared.NeutralTrend
	}

	last := closes[len(closes)-1]
	tolerance := ema * tolerancePercent / 100

	switch {
	case last > ema+tolerance:
		return shared.BullishTrend
	case last < ema-tolerance:
		return shared.BearishTrend
	default:
		return shared.NeutralTrend
	}
}
