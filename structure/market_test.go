package structure

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"

	"smartmoney/shared"
)

func testParams() shared.StrategyParams {
	params := shared.DefaultStrategyParams()
	params.Lookback = 50
	params.SweepPenetrationPercent = 0.1
	params.WickBodyRatio = 2.0
	params.MinGapPercent = 0.1
	params.ConfirmationWindow = 12
	params.ShiftExpiry = 24
	return params
}

func testDetector(t *testing.T) *Market {
	t.Helper()

	logger := log.With().Str("component", "structure").Logger()
	detector, err := NewMarket(&MarketConfig{
		Market:    "BTCUSDT",
		Timeframe: shared.FiveMinute,
		Params:    testParams(),
		Logger:    &logger,
	})
	assert.NoError(t, err)

	return detector
}

var testStart = time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)

func structureCandle(idx int, open, high, low, close float64) *shared.Candlestick {
	return &shared.Candlestick{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    10,
		Date:      testStart.Add(time.Duration(idx) * 5 * time.Minute),
		Market:    "BTCUSDT",
		Timeframe: shared.FiveMinute,
	}
}

// sweepScenario builds a candle sequence that confirms a swing low at 97 and a
// swing high at 105, sweeps the low, breaches the high with a wick only and
// finally closes beyond it.
func sweepScenario() []*shared.Candlestick {
	return []*shared.Candlestick{
		structureCandle(0, 100, 101, 99, 100),
		structureCandle(1, 100, 101, 98.5, 100),
		structureCandle(2, 100, 100.5, 97, 99), // swing low candidate.
		structureCandle(3, 99, 101, 98.6, 100),
		structureCandle(4, 100, 101.5, 98.7, 101), // swing low at 97 confirms here.
		structureCandle(5, 101, 103, 100, 102),
		structureCandle(6, 102, 105, 101.5, 103), // swing high candidate.
		structureCandle(7, 103, 104, 101, 102),
		structureCandle(8, 102, 103.5, 100.8, 101), // swing high at 105 confirms here.
		structureCandle(9, 100, 101.2, 96.5, 100),  // sweeps the 97 swing low, closes back above.
		structureCandle(10, 100, 105.05, 99.5, 104), // wick-only breach of the 105 swing high.
		structureCandle(11, 104, 106, 103.5, 105.5), // closes beyond 105, confirming the shift.
	}
}

func feed(t *testing.T, detector *Market, candles []*shared.Candlestick) [][]shared.StructuralEvent {
	t.Helper()

	emitted := make([][]shared.StructuralEvent, 0, len(candles))
	state := &shared.IndicatorState{}
	for idx := range candles {
		events, err := detector.Update(candles[idx], state)
		assert.NoError(t, err)
		emitted = append(emitted, events)
	}

	return emitted
}

func eventsOfKind(emitted [][]shared.StructuralEvent, kind shared.EventKind) []shared.StructuralEvent {
	matches := make([]shared.StructuralEvent, 0)
	for idx := range emitted {
		for _, event := range emitted[idx] {
			if event.Kind == kind {
				matches = append(matches, event)
			}
		}
	}

	return matches
}

func TestLiquiditySweepDetection(t *testing.T) {
	detector := testDetector(t)
	emitted := feed(t, detector, sweepScenario())

	sweeps := eventsOfKind(emitted, shared.LiquiditySweep)
	assert.Equal(t, 1, len(sweeps))

	// Sweeping a low is bullish and the event carries the swept swing level.
	assert.Equal(t, shared.Bullish, sweeps[0].Sentiment)
	assert.Equal(t, float64(97), sweeps[0].Level)

	// The event is timestamped to the candle that confirmed it.
	assert.Equal(t, testStart.Add(9*5*time.Minute), sweeps[0].Date)
}

func TestMarketStructureShiftRequiresClose(t *testing.T) {
	detector := testDetector(t)
	candles := sweepScenario()

	// Stop right after the wick-only breach of the swing high.
	emitted := feed(t, detector, candles[:11])
	shifts := eventsOfKind(emitted, shared.MarketStructureShift)
	assert.Equal(t, 0, len(shifts))

	// A close beyond the swing level confirms the shift.
	state := &shared.IndicatorState{}
	events, err := detector.Update(candles[11], state)
	assert.NoError(t, err)

	shifts = make([]shared.StructuralEvent, 0)
	for _, event := range events {
		if event.Kind == shared.MarketStructureShift {
			shifts = append(shifts, event)
		}
	}
	assert.Equal(t, 1, len(shifts))
	assert.Equal(t, shared.Bullish, shifts[0].Sentiment)
	assert.Equal(t, float64(105), shifts[0].Level)
}

func TestSweepInvariantToStaleHistory(t *testing.T) {
	// A long flat prefix confirms no swing points, so prepending it must not
	// change the detected events.
	prefix := make([]*shared.Candlestick, 20)
	for idx := range prefix {
		prefix[idx] = &shared.Candlestick{
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    10,
			Date:      testStart.Add(time.Duration(idx-20) * 5 * time.Minute),
			Market:    "BTCUSDT",
			Timeframe: shared.FiveMinute,
		}
	}

	bare := testDetector(t)
	bareEmitted := feed(t, bare, sweepScenario())

	prefixed := testDetector(t)
	feed(t, prefixed, prefix)
	prefixedEmitted := feed(t, prefixed, sweepScenario())

	diff := cmp.Diff(bareEmitted, prefixedEmitted)
	assert.Equal(t, "", diff)
}

func TestWickRejection(t *testing.T) {
	detector := testDetector(t)

	state := &shared.IndicatorState{
		BandUpper:  105,
		BandMiddle: 102,
		BandLower:  99,
		BandsValid: true,
	}

	// A dominant lower wick tagging the lower band is a bullish rejection.
	events, err := detector.Update(structureCandle(0, 100.5, 100.6, 98.5, 100.4), state)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))
	assert.Equal(t, shared.WickRejection, events[0].Kind)
	assert.Equal(t, shared.Bullish, events[0].Sentiment)
	assert.Equal(t, float64(99), events[0].Level)

	// A dominant upper wick tagging the upper band is a bearish rejection.
	events, err = detector.Update(structureCandle(1, 100.5, 106, 100.4, 100.6), state)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))
	assert.Equal(t, shared.WickRejection, events[0].Kind)
	assert.Equal(t, shared.Bearish, events[0].Sentiment)

	// Without valid bands no rejection fires.
	events, err = detector.Update(structureCandle(2, 100.5, 100.6, 98, 100.4), &shared.IndicatorState{})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(events))

	// A dominant wick that never tags a band is not a rejection.
	events, err = detector.Update(structureCandle(3, 100.5, 100.6, 99.5, 100.4), state)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(events))
}

func TestFairValueGapPullback(t *testing.T) {
	detector := testDetector(t)
	state := &shared.IndicatorState{}

	displacement := []*shared.Candlestick{
		structureCandle(0, 100, 101, 99, 100.8),
		structureCandle(1, 101, 103, 100.9, 102.8),
		structureCandle(2, 103, 104.5, 102.9, 104), // leaves a bullish gap between 101 and 102.9.
	}

	for idx := range displacement {
		events, err := detector.Update(displacement[idx], state)
		assert.NoError(t, err)
		// Creating the gap emits no event, only the pullback does.
		assert.Equal(t, 0, len(events))
	}

	// A candle dipping into the gap without closing through it fires the
	// pullback event.
	events, err := detector.Update(structureCandle(3, 104, 104.2, 102.5, 103.5), state)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))
	assert.Equal(t, shared.FairValueGap, events[0].Kind)
	assert.Equal(t, shared.Bullish, events[0].Sentiment)
	assert.Equal(t, float64(102.9), events[0].GapHigh)
	assert.Equal(t, float64(101), events[0].GapLow)

	// The pullback fires at most once per gap.
	events, err = detector.Update(structureCandle(4, 103.5, 104.2, 102.7, 103.8), state)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(events))
}

func TestRecentEventsWindow(t *testing.T) {
	detector := testDetector(t)
	emitted := feed(t, detector, sweepScenario())

	// The sweep and the shift both sit inside the recency window.
	total := 0
	for idx := range emitted {
		total += len(emitted[idx])
	}
	recent := detector.RecentEvents()
	assert.Equal(t, total, len(recent))

	// Feed flat candles until the sweep ages out of the window.
	state := &shared.IndicatorState{}
	for idx := range 12 {
		candle := structureCandle(12+idx, 105.5, 106, 105, 105.5)
		_, err := detector.Update(candle, state)
		assert.NoError(t, err)
	}

	assert.Equal(t, 0, len(detector.RecentEvents()))
}
