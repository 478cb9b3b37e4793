package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"

	"smartmoney/shared"
)

// engineStart falls inside the london session window.
var engineStart = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

func bullishEvents() []shared.StructuralEvent {
	return []shared.StructuralEvent{
		{
			Kind:      shared.LiquiditySweep,
			Market:    "BTCUSDT",
			Timeframe: shared.FiveMinute,
			Sentiment: shared.Bullish,
			Level:     97,
			Date:      engineStart,
		},
		{
			Kind:      shared.MarketStructureShift,
			Market:    "BTCUSDT",
			Timeframe: shared.FiveMinute,
			Sentiment: shared.Bullish,
			Level:     105,
			Date:      engineStart.Add(10 * time.Minute),
		},
		{
			Kind:      shared.FairValueGap,
			Market:    "BTCUSDT",
			Timeframe: shared.FiveMinute,
			Sentiment: shared.Bullish,
			Level:     101.95,
			GapHigh:   102.9,
			GapLow:    101,
			Date:      engineStart.Add(15 * time.Minute),
		},
	}
}

// resweptEvents rebuilds the bullish event window around a fresh liquidity
// sweep at the provided level and time.
func resweptEvents(level float64, at time.Time) []shared.StructuralEvent {
	events := bullishEvents()
	events[0].Level = level
	events[0].Date = at
	return events
}

func confirmingCandle() *shared.Candlestick {
	return &shared.Candlestick{
		Open:      104,
		High:      106,
		Low:       103.5,
		Close:     105.5,
		Volume:    10,
		Date:      engineStart.Add(15 * time.Minute),
		Market:    "BTCUSDT",
		Timeframe: shared.FiveMinute,
	}
}

func TestConfirm(t *testing.T) {
	events := bullishEvents()

	// Trend aligned primary and supporting events confirm a buy, anchored at
	// the swept swing.
	verdict := Confirm(events, shared.BullishTrend)
	assert.NotEqual(t, (*Verdict)(nil), verdict)
	assert.Equal(t, shared.Buy, verdict.Direction)
	assert.Equal(t, shared.LiquiditySweep, verdict.Anchor.Kind)
	assert.Equal(t, float64(97), verdict.Anchor.Level)

	// A misaligned or neutral trend blocks the verdict.
	assert.Equal(t, (*Verdict)(nil), Confirm(events, shared.BearishTrend))
	assert.Equal(t, (*Verdict)(nil), Confirm(events, shared.NeutralTrend))

	// Any sentiment conflict within the window blocks the verdict.
	conflicted := append(bullishEvents(), shared.StructuralEvent{
		Kind:      shared.LiquiditySweep,
		Market:    "BTCUSDT",
		Timeframe: shared.FiveMinute,
		Sentiment: shared.Bearish,
		Level:     106,
		Date:      engineStart.Add(20 * time.Minute),
	})
	assert.Equal(t, (*Verdict)(nil), Confirm(conflicted, shared.BullishTrend))

	// A primary event without a supporting confirmation does not qualify.
	assert.Equal(t, (*Verdict)(nil), Confirm(events[:2], shared.BullishTrend))

	// Supporting events without a primary do not qualify either.
	assert.Equal(t, (*Verdict)(nil), Confirm(events[2:], shared.BullishTrend))

	// Without a sweep the stop loss anchors to the structure shift.
	verdict = Confirm(events[1:], shared.BullishTrend)
	assert.NotEqual(t, (*Verdict)(nil), verdict)
	assert.Equal(t, shared.MarketStructureShift, verdict.Anchor.Kind)
	assert.Equal(t, float64(105), verdict.Anchor.Level)
}

func TestBuildSetup(t *testing.T) {
	candle := confirmingCandle()
	state := &shared.IndicatorState{Trend: shared.BullishTrend}
	params := shared.DefaultStrategyParams()
	sessions := shared.DefaultSessionTable()

	verdict := Confirm(bullishEvents(), shared.BullishTrend)
	assert.NotEqual(t, (*Verdict)(nil), verdict)

	setup, err := BuildSetup(candle, state, verdict, params, sessions)
	assert.NoError(t, err)

	assert.Equal(t, "BTCUSDT", setup.Market)
	assert.Equal(t, shared.Buy, setup.Direction)
	assert.Equal(t, shared.London, setup.Session)
	assert.Equal(t, float64(105.5), setup.Entry)

	// The stop loss sits below the swept swing, padded by the buffer.
	stop := 97 - 97*params.StopLossBufferPercent/100
	assert.True(t, math.Abs(setup.StopLoss-stop) < 1e-9)

	// The take profit doubles the stop distance.
	target := setup.Entry + rewardRiskRatio*(setup.Entry-stop)
	assert.True(t, math.Abs(setup.TakeProfit-target) < 1e-9)

	expectedID := shared.SetupID("BTCUSDT", shared.Buy, shared.London, candle.Date, params.SetupBucketSeconds)
	assert.Equal(t, expectedID, setup.ID)
	assert.Equal(t, 3, len(setup.Evidence.Events))

	// Rebuilding from the same inputs reproduces the setup exactly.
	replay, err := BuildSetup(candle, state, verdict, params, sessions)
	assert.NoError(t, err)
	assert.Equal(t, "", cmp.Diff(setup, replay))

	// A sell stop anchored below the entry cannot produce positive risk.
	inverted := &Verdict{
		Direction: shared.Sell,
		Anchor:    bullishEvents()[0],
		Events:    bullishEvents(),
	}
	_, err = BuildSetup(candle, state, inverted, params, sessions)
	assert.Error(t, err)
}

func TestBuildSetupSell(t *testing.T) {
	candle := confirmingCandle()
	state := &shared.IndicatorState{Trend: shared.BearishTrend}
	params := shared.DefaultStrategyParams()

	verdict := &Verdict{
		Direction: shared.Sell,
		Anchor: shared.StructuralEvent{
			Kind:      shared.LiquiditySweep,
			Sentiment: shared.Bearish,
			Level:     110,
			Date:      candle.Date,
		},
	}

	setup, err := BuildSetup(candle, state, verdict, params, shared.DefaultSessionTable())
	assert.NoError(t, err)

	stop := 110 + 110*params.StopLossBufferPercent/100
	assert.True(t, math.Abs(setup.StopLoss-stop) < 1e-9)
	assert.True(t, setup.TakeProfit < setup.Entry)
	assert.True(t, math.Abs(setup.TakeProfit-(setup.Entry-rewardRiskRatio*(stop-setup.Entry))) < 1e-9)
}

// stubLedger is an in-memory dedup ledger for engine tests.
type stubLedger struct {
	ids map[string]time.Time
	err error
}

func (l *stubLedger) Seen(id string, now time.Time) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	_, ok := l.ids[id]
	return ok, nil
}

func (l *stubLedger) Record(id string, now time.Time) error {
	if l.err != nil {
		return l.err
	}
	l.ids[id] = now
	return nil
}

func TestEngine(t *testing.T) {
	setups := make(chan shared.SetupSignal, 4)
	persisted := 0
	ledger := &stubLedger{ids: make(map[string]time.Time)}

	logger := log.With().Str("component", "engine").Logger()
	eng, err := NewEngine(&EngineConfig{
		Strategy: &shared.StrategyConfig{
			Defaults: shared.DefaultStrategyParams(),
			Sessions: shared.DefaultSessionTable(),
		},
		Ledger: ledger,
		SignalSetup: func(signal shared.SetupSignal) {
			setups <- signal
		},
		PersistSetup: func(ctx context.Context, setup *shared.Setup) error {
			persisted++
			return nil
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	state := shared.IndicatorState{Trend: shared.BullishTrend}

	// A confirmed evaluation emits exactly one setup.
	signal := shared.NewEvaluationSignal(*confirmingCandle(), state, bullishEvents())
	eng.SendEvaluationSignal(signal)
	<-signal.Status

	select {
	case emitted := <-setups:
		assert.Equal(t, shared.Buy, emitted.Setup.Direction)
		assert.Equal(t, 1, persisted)
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for setup signal")
	}

	// Replaying the identical evaluation is suppressed.
	replay := shared.NewEvaluationSignal(*confirmingCandle(), state, bullishEvents())
	eng.SendEvaluationSignal(replay)
	<-replay.Status
	assert.Equal(t, 0, len(setups))
	assert.Equal(t, 1, persisted)

	// The anchor lingers in the recency window and re-confirms on the next
	// close in a fresh time bucket. One anchor still delivers one alert.
	later := confirmingCandle()
	later.Date = later.Date.Add(5 * time.Minute)
	laterSignal := shared.NewEvaluationSignal(*later, state, bullishEvents())
	eng.SendEvaluationSignal(laterSignal)
	<-laterSignal.Status
	assert.Equal(t, 0, len(setups))
	assert.Equal(t, 1, persisted)

	// A fresh sweep anchors a new setup and alerts again.
	reswept := confirmingCandle()
	reswept.Date = reswept.Date.Add(10 * time.Minute)
	resweptSignal := shared.NewEvaluationSignal(*reswept, state,
		resweptEvents(96, engineStart.Add(25*time.Minute)))
	eng.SendEvaluationSignal(resweptSignal)
	<-resweptSignal.Status

	select {
	case <-setups:
		// do nothing.
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for reswept setup signal")
	}

	// A ledger failure suppresses the setup rather than risking a duplicate.
	ledger.err = errors.New("ledger offline")
	failed := confirmingCandle()
	failed.Date = failed.Date.Add(15 * time.Minute)
	failedSignal := shared.NewEvaluationSignal(*failed, state,
		resweptEvents(95, engineStart.Add(30*time.Minute)))
	eng.SendEvaluationSignal(failedSignal)
	<-failedSignal.Status
	assert.Equal(t, 0, len(setups))

	// An unconfirmed evaluation emits nothing.
	ledger.err = nil
	neutral := shared.NewEvaluationSignal(*confirmingCandle(), shared.IndicatorState{}, bullishEvents())
	eng.SendEvaluationSignal(neutral)
	<-neutral.Status
	assert.Equal(t, 0, len(setups))

	cancel()
	<-done
}
