package structure

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"smartmoney/shared"
)

func TestManager(t *testing.T) {
	evaluations := make(chan shared.EvaluationSignal, 16)
	var caughtUp atomic.Bool

	logger := log.With().Str("component", "structuremanager").Logger()
	mgr, err := NewManager(&ManagerConfig{
		Markets:    []string{"BTCUSDT"},
		Timeframes: []shared.Timeframe{shared.FiveMinute, shared.OneHour},
		Strategy: &shared.StrategyConfig{
			Defaults: testParams(),
			Sessions: shared.DefaultSessionTable(),
		},
		SignalEvaluation: func(signal shared.EvaluationSignal) {
			evaluations <- signal
		},
		FetchCaughtUpState: func(market string) bool {
			return caughtUp.Load()
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Feed the sweep scenario before catching up, evaluations stay muted.
	state := shared.IndicatorState{}
	for _, candle := range sweepScenario() {
		signal := shared.NewMarketUpdateSignal(*candle, state)
		mgr.SendMarketUpdate(signal)
		<-signal.Status
	}
	assert.Equal(t, 0, len(evaluations))

	// Once caught up, a low timeframe close with recent events triggers an
	// evaluation.
	caughtUp.Store(true)
	next := structureCandle(12, 105.5, 106, 105, 105.5)
	signal := shared.NewMarketUpdateSignal(*next, state)
	mgr.SendMarketUpdate(signal)
	<-signal.Status

	select {
	case evaluation := <-evaluations:
		assert.Equal(t, "BTCUSDT", evaluation.Market)
		assert.GreaterThan(t, len(evaluation.Events), 0)
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for evaluation signal")
	}

	// Higher timeframe closes never trigger evaluations.
	htf := structureCandle(13, 105.5, 106, 105, 105.5)
	htf.Timeframe = shared.OneHour
	htfSignal := shared.NewMarketUpdateSignal(*htf, state)
	mgr.SendMarketUpdate(htfSignal)
	<-htfSignal.Status
	assert.Equal(t, 0, len(evaluations))

	cancel()
	<-done
}
