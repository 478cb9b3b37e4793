package indicator

// relativeStrengthSeries computes a wilder smoothed relative strength index
// series over the provided closes. The returned series holds one value per
// close starting from index period, so its length is len(closes) - period.
func relativeStrengthSeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	var avgGain, avgLoss float64
	for idx := 1; idx <= period; idx++ {
		delta := closes[idx] - closes[idx-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	series := make([]float64, 0, len(closes)-period)
	series = append(series, relativeStrengthValue(avgGain, avgLoss))

	for idx := period + 1; idx < len(closes); idx++ {
		delta := closes[idx] - closes[idx-1]

		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		series = append(series, relativeStrengthValue(avgGain, avgLoss))
	}

	return series
}

// relativeStrengthValue derives an rsi value from the provided average gain and loss.
func relativeStrengthValue(avgGain float64, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// simpleMovingAverage returns the mean of the last period values.
func simpleMovingAverage(values []float64, period int) float64 {
	var sum float64
	for idx := len(values) - period; idx < len(values); idx++ {
		sum += values[idx]
	}

	return sum / float64(period)
}

// Oscillator returns the fast and slow lines of a smoothed relative strength
// oscillator over the provided closes. The fast and slow lines are simple
// moving averages of the relative strength series over their respective
// periods. The ok flag is false while the window holds insufficient data.
func Oscillator(closes []float64, rsiPeriod int, fastPeriod int, slowPeriod int) (float64, float64, bool) {
	if rsiPeriod <= 0 || fastPeriod <= 0 || slowPeriod <= 0 {
		return 0, 0, false
	}

	longest := fastPeriod
	if slowPeriod > longest {
		longest = slowPeriod
	}

	series := relativeStrengthSeries(closes, rsiPeriod)
	if len(series) < longest {
		return 0, 0, false
	}

	fast := simpleMovingAverage(series, fastPeriod)
	slow := simpleMovingAverage(series, slowPeriod)

	return fast, slow, true
}
