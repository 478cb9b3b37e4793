package structure

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

// detectorKey identifies a structure detector by market and timeframe.
type detectorKey struct {
	market    string
	timeframe shared.Timeframe
}

// ManagerConfig represents the structure manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of tracked markets.
	Markets []string
	// Timeframes are the timeframes scanned per market.
	Timeframes []shared.Timeframe
	// Strategy holds the per-market detection thresholds.
	Strategy *shared.StrategyConfig
	// SignalEvaluation relays an evaluation signal for processing.
	SignalEvaluation func(signal shared.EvaluationSignal)
	// FetchCaughtUpState reports whether a market has ingested its initial
	// history. Evaluations are muted until then to avoid alerting on stale
	// structure.
	FetchCaughtUpState func(market string) bool
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager runs the structure detectors of all tracked markets and relays
// evaluation signals on low timeframe candle closes.
type Manager struct {
	cfg           *ManagerConfig
	detectors     map[detectorKey]*Market
	updateSignals chan shared.MarketUpdateSignal
	workers       map[string]chan struct{}
}

// NewManager initializes a new structure manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	detectors := make(map[detectorKey]*Market)
	workers := make(map[string]chan struct{}, len(cfg.Markets))
	for _, market := range cfg.Markets {
		for _, timeframe := range cfg.Timeframes {
			mCfg := &MarketConfig{
				Market:    market,
				Timeframe: timeframe,
				Params:    cfg.Strategy.ForMarket(market),
				Logger:    cfg.Logger,
			}
			detector, err := NewMarket(mCfg)
			if err != nil {
				return nil, fmt.Errorf("creating %s %s structure detector: %w",
					market, timeframe.String(), err)
			}

			detectors[detectorKey{market: market, timeframe: timeframe}] = detector
		}

		workers[market] = make(chan struct{}, 1)
	}

	return &Manager{
		cfg:           cfg,
		detectors:     detectors,
		updateSignals: make(chan shared.MarketUpdateSignal, bufferSize),
		workers:       workers,
	}, nil
}

// SendMarketUpdate relays the provided market update for processing.
func (m *Manager) SendMarketUpdate(signal shared.MarketUpdateSignal) {
	select {
	case m.updateSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("structure update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// handleUpdateSignal processes the provided market update signal.
func (m *Manager) handleUpdateSignal(signal *shared.MarketUpdateSignal) error {
	defer func() {
		signal.Status <- shared.Processed
	}()

	key := detectorKey{market: signal.Candle.Market, timeframe: signal.Candle.Timeframe}
	detector, ok := m.detectors[key]
	if !ok {
		return fmt.Errorf("no structure detector found for %s %s",
			signal.Candle.Market, signal.Candle.Timeframe.String())
	}

	_, err := detector.Update(&signal.Candle, &signal.State)
	if err != nil {
		return fmt.Errorf("scanning %s %s candle: %w",
			signal.Candle.Market, signal.Candle.Timeframe.String(), err)
	}

	// Setups are only evaluated on low timeframe closes, and only once the
	// market has caught up on its initial history.
	if signal.Candle.Timeframe != shared.FiveMinute {
		return nil
	}
	if !m.cfg.FetchCaughtUpState(signal.Candle.Market) {
		return nil
	}

	events := detector.RecentEvents()
	if len(events) == 0 {
		return nil
	}

	m.cfg.SignalEvaluation(shared.NewEvaluationSignal(signal.Candle, signal.State, events))

	return nil
}

// Run manages the lifecycle processes of the structure manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.updateSignals:
			worker, ok := m.workers[signal.Candle.Market]
			if !ok {
				m.cfg.Logger.Error().Msgf("no worker found for market %s", signal.Candle.Market)
				continue
			}

			// use the dedicated market worker to preserve candle ordering
			// per market.
			worker <- struct{}{}
			go func(signal shared.MarketUpdateSignal) {
				err := m.handleUpdateSignal(&signal)
				if err != nil {
					m.cfg.Logger.Error().Msgf("handling market update: %v", err)
				}
				<-worker
			}(signal)
		}
	}
}
