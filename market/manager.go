package market

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"smartmoney/shared"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of tracked markets.
	Markets []string
	// Timeframes are the timeframes tracked per market.
	Timeframes []shared.Timeframe
	// Strategy holds the per-market detection thresholds.
	Strategy *shared.StrategyConfig
	// Subscribe registers the manager's intake channel for candle updates.
	// Optional.
	Subscribe func(sub *chan shared.Candlestick)
	// RelayMarketUpdate relays an accepted candle and its indicator state.
	RelayMarketUpdate func(signal shared.MarketUpdateSignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages the candle series and indicator state of all tracked markets.
type Manager struct {
	cfg             *ManagerConfig
	markets         map[string]*Market
	updateSignals   chan shared.Candlestick
	caughtUpSignals chan shared.CaughtUpSignal
	workers         map[string]chan struct{}
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	markets := make(map[string]*Market, len(cfg.Markets))
	workers := make(map[string]chan struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		name := cfg.Markets[idx]

		mCfg := &MarketConfig{
			Market:            name,
			Timeframes:        cfg.Timeframes,
			Params:            cfg.Strategy.ForMarket(name),
			RelayMarketUpdate: cfg.RelayMarketUpdate,
			Logger:            cfg.Logger,
		}
		market, err := NewMarket(mCfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s market: %w", name, err)
		}

		markets[name] = market
		workers[name] = make(chan struct{}, 1)
	}

	mgr := &Manager{
		cfg:             cfg,
		markets:         markets,
		updateSignals:   make(chan shared.Candlestick, bufferSize),
		caughtUpSignals: make(chan shared.CaughtUpSignal, bufferSize),
		workers:         workers,
	}

	if cfg.Subscribe != nil {
		cfg.Subscribe(&mgr.updateSignals)
	}

	return mgr, nil
}

// SendMarketUpdate relays the provided candlestick for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendCaughtUpSignal relays the provided caught up signal for processing.
func (m *Manager) SendCaughtUpSignal(signal shared.CaughtUpSignal) {
	select {
	case m.caughtUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("caught up channel at capacity: %d/%d",
			len(m.caughtUpSignals), bufferSize)
	}
}

// FetchCaughtUpState reports whether the provided market has ingested its
// initial history.
func (m *Manager) FetchCaughtUpState(market string) bool {
	mkt, ok := m.markets[market]
	if !ok {
		return false
	}

	return mkt.CaughtUp()
}

// handleUpdateCandle processes the provided market update candle.
func (m *Manager) handleUpdateCandle(candle *shared.Candlestick) {
	market, ok := m.markets[candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for update", candle.Market)
		return
	}

	err := market.Update(candle)
	if err != nil {
		m.cfg.Logger.Error().Msgf("updating %s market: %v", candle.Market, err)
		return
	}
}

// handleCaughtUpSignal processes the provided caught up signal.
func (m *Manager) handleCaughtUpSignal(signal shared.CaughtUpSignal) {
	defer func() {
		signal.Status <- shared.Processed
	}()

	market, ok := m.markets[signal.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for caught up signal", signal.Market)
		return
	}

	market.SetCaughtUp()
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.caughtUpSignals:
			m.handleCaughtUpSignal(signal)
		case candle := <-m.updateSignals:
			worker, ok := m.workers[candle.Market]
			if !ok {
				m.cfg.Logger.Error().Msgf("no worker found for market %s", candle.Market)
				continue
			}

			// use the dedicated market worker to preserve candle ordering
			// per market.
			worker <- struct{}{}
			go func(candle *shared.Candlestick) {
				m.handleUpdateCandle(candle)
				<-worker
			}(&candle)
		}
	}
}
