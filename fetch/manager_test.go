package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"

	"smartmoney/shared"
)

func TestManagerPoll(t *testing.T) {
	client := testClient(t)
	caughtUp := make([]shared.CaughtUpSignal, 0, 2)

	logger := log.With().Str("component", "fetchmanager").Logger()
	mgr, err := NewManager(&ManagerConfig{
		Markets:             []string{"BTCUSDT"},
		Timeframes:          []shared.Timeframe{shared.OneHour, shared.FiveMinute},
		ExchangeClient:      client,
		PollIntervalSeconds: 30,
		SignalCaughtUp: func(signal shared.CaughtUpSignal) {
			caughtUp = append(caughtUp, signal)
		},
		JobScheduler: gocron.NewScheduler(time.UTC),
		Logger:       &logger,
	})
	assert.NoError(t, err)

	updates := make(chan shared.Candlestick, 16)
	mgr.Subscribe(&updates)

	mgr.pollMarket(context.Background(), "BTCUSDT")

	// The fixture klines are all closed by now, both timeframes relay all
	// three, higher timeframe first.
	assert.Equal(t, 6, len(updates))
	first := <-updates
	assert.Equal(t, shared.OneHour, first.Timeframe)
	assert.Equal(t, time.UnixMilli(1709625600000).UTC(), first.Date)

	// The first completed poll cycle signals the market caught up, once.
	assert.Equal(t, 1, len(caughtUp))
	assert.Equal(t, "BTCUSDT", caughtUp[0].Market)

	// Re-polling the same data relays nothing new.
	for len(updates) > 0 {
		<-updates
	}
	mgr.pollMarket(context.Background(), "BTCUSDT")
	assert.Equal(t, 0, len(updates))
	assert.Equal(t, 1, len(caughtUp))
}

func TestManagerValidation(t *testing.T) {
	logger := log.With().Str("component", "fetchmanager").Logger()

	_, err := NewManager(&ManagerConfig{
		Timeframes:          []shared.Timeframe{shared.FiveMinute},
		ExchangeClient:      testClient(t),
		PollIntervalSeconds: 30,
		JobScheduler:        gocron.NewScheduler(time.UTC),
		Logger:              &logger,
	})
	assert.Error(t, err)

	_, err = NewManager(&ManagerConfig{
		Markets:             []string{"BTCUSDT"},
		Timeframes:          []shared.Timeframe{shared.FiveMinute},
		ExchangeClient:      testClient(t),
		PollIntervalSeconds: 0,
		JobScheduler:        gocron.NewScheduler(time.UTC),
		Logger:              &logger,
	})
	assert.Error(t, err)
}
