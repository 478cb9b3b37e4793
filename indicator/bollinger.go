package indicator

import "math"

// BollingerBands returns the upper, middle and lower band of the provided
// closes using a simple moving average and the population standard deviation
// over the period. The ok flag is false while the window holds insufficient
// data.
func BollingerBands(closes []float64, period int, multiplier float64) (float64, float64, float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0, false
	}

	middle := simpleMovingAverage(closes, period)

	var variance float64
	for idx := len(closes) - period; idx < len(closes); idx++ {
		diff := closes[idx] - middle
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(period))

	upper := middle + stddev*multiplier
	lower := middle - stddev*multiplier

	return upper, middle, lower, true
}
