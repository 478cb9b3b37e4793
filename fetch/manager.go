package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"smartmoney/shared"
)

const (
	// ltfFetchLimit is the number of low timeframe klines fetched per poll.
	ltfFetchLimit = 100
	// htfFetchLimit is the number of higher timeframe klines fetched per poll.
	htfFetchLimit = 50
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 24
)

// seriesKey identifies a candle series by market and timeframe.
type seriesKey struct {
	market    string
	timeframe shared.Timeframe
}

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Markets represents the collection of tracked markets.
	Markets []string
	// Timeframes are the timeframes polled per market, higher timeframes
	// first so trend context always precedes the candles it qualifies.
	Timeframes []shared.Timeframe
	// ExchangeClient represents the market exchange client.
	ExchangeClient *BinanceClient
	// PollIntervalSeconds is the polling cadence per market.
	PollIntervalSeconds int
	// SignalCaughtUp signals a market has finished its initial history fetch.
	SignalCaughtUp func(signal shared.CaughtUpSignal)
	// JobScheduler runs the polling jobs.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager polls the exchange for closed candles and fans them out to
// subscribers. Candles already relayed in a prior poll are filtered here,
// series ingestion downstream drops any stragglers.
type Manager struct {
	cfg         *ManagerConfig
	mtx         sync.Mutex
	lastSent    map[seriesKey]time.Time
	caughtUp    map[string]bool
	subscribers []*chan shared.Candlestick
}

// NewManager initializes a new fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if len(cfg.Markets) == 0 {
		return nil, errors.New("fetch manager requires at least one market")
	}
	if cfg.ExchangeClient == nil {
		return nil, errors.New("fetch manager requires an exchange client")
	}
	if cfg.JobScheduler == nil {
		return nil, errors.New("fetch manager requires a job scheduler")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	return &Manager{
		cfg:         cfg,
		lastSent:    make(map[seriesKey]time.Time),
		caughtUp:    make(map[string]bool),
		subscribers: make([]*chan shared.Candlestick, 0, minSubscriberBuffer),
	}, nil
}

// Subscribe registers the provided subscriber for market updates. All
// subscriptions happen before Run.
func (m *Manager) Subscribe(sub *chan shared.Candlestick) {
	m.subscribers = append(m.subscribers, sub)
}

// notifySubscribers notifies subscribers of the new market update.
func (m *Manager) notifySubscribers(candle *shared.Candlestick) {
	for idx := range m.subscribers {
		*m.subscribers[idx] <- *candle
	}
}

// filterFresh drops candles already relayed for the provided series and
// advances the relay watermark.
func (m *Manager) filterFresh(market string, timeframe shared.Timeframe, candles []shared.Candlestick) []shared.Candlestick {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	key := seriesKey{market: market, timeframe: timeframe}
	watermark := m.lastSent[key]

	fresh := make([]shared.Candlestick, 0, len(candles))
	for idx := range candles {
		if candles[idx].Date.After(watermark) {
			fresh = append(fresh, candles[idx])
		}
	}

	if len(fresh) > 0 {
		m.lastSent[key] = fresh[len(fresh)-1].Date
	}

	return fresh
}

// signalCaughtUp signals the provided market caught up, once, after its first
// completed poll cycle.
func (m *Manager) signalCaughtUp(market string) {
	m.mtx.Lock()
	if m.caughtUp[market] {
		m.mtx.Unlock()
		return
	}
	m.caughtUp[market] = true
	m.mtx.Unlock()

	if m.cfg.SignalCaughtUp != nil {
		m.cfg.SignalCaughtUp(shared.NewCaughtUpSignal(market))
	}
}

// pollMarket fetches the latest closed candles of all tracked timeframes for
// the provided market and relays the fresh ones.
func (m *Manager) pollMarket(ctx context.Context, market string) {
	for _, timeframe := range m.cfg.Timeframes {
		limit := ltfFetchLimit
		if timeframe == shared.OneHour {
			limit = htfFetchLimit
		}

		data, err := m.cfg.ExchangeClient.FetchCandlesticks(ctx, market, timeframe, limit)
		if err != nil {
			m.cfg.Logger.Error().Msgf("polling %s %s: %v", market, timeframe.String(), err)
			return
		}

		candles, err := m.cfg.ExchangeClient.ParseCandlesticks(data, market, timeframe, time.Now().UTC())
		if err != nil {
			m.cfg.Logger.Error().Msgf("parsing %s %s candles: %v", market, timeframe.String(), err)
			return
		}

		fresh := m.filterFresh(market, timeframe, candles)
		for idx := range fresh {
			m.notifySubscribers(&fresh[idx])
		}
	}

	m.signalCaughtUp(market)
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	for idx := range m.cfg.Markets {
		market := m.cfg.Markets[idx]
		_, err := m.cfg.JobScheduler.Every(m.cfg.PollIntervalSeconds).Seconds().Do(func() {
			m.pollMarket(ctx, market)
		})
		if err != nil {
			m.cfg.Logger.Error().Msgf("scheduling %s poll job: %v", market, err)
		}
	}

	m.cfg.JobScheduler.StartAsync()

	<-ctx.Done()
	m.cfg.JobScheduler.Stop()
}
