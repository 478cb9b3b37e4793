package market

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"smartmoney/indicator"
	"smartmoney/shared"
)

// MarketConfig represents the configuration for a tracked market.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframes are the timeframes tracked for the market.
	Timeframes []shared.Timeframe
	// Params holds the detection thresholds for the market.
	Params shared.StrategyParams
	// RelayMarketUpdate relays an accepted candle and its indicator state.
	RelayMarketUpdate func(signal shared.MarketUpdateSignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Market tracks the candle series and indicator state of a market across its
// timeframes. The higher timeframe trend is updated only on higher timeframe
// closes and is read, never mutated, while low timeframe candles are relayed.
type Market struct {
	cfg      *MarketConfig
	series   map[shared.Timeframe]*shared.CandlestickSnapshot
	htfTrend shared.Trend
	caughtUp atomic.Bool
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	series := make(map[shared.Timeframe]*shared.CandlestickSnapshot, len(cfg.Timeframes))
	for _, timeframe := range cfg.Timeframes {
		snapshot, err := shared.NewCandlestickSnapshot(cfg.Params.Lookback)
		if err != nil {
			return nil, fmt.Errorf("creating %s candlestick snapshot: %w", timeframe.String(), err)
		}

		series[timeframe] = snapshot
	}

	return &Market{
		cfg:    cfg,
		series: series,
	}, nil
}

// Update ingests the provided closed candle, recomputes the indicator state
// for its timeframe and relays the accepted update. Malformed candles are
// rejected, duplicates are dropped silently.
func (m *Market) Update(candle *shared.Candlestick) error {
	snapshot, ok := m.series[candle.Timeframe]
	if !ok {
		return fmt.Errorf("market %s does not track timeframe %s", m.cfg.Market, candle.Timeframe.String())
	}

	accepted, err := snapshot.Update(candle)
	if err != nil {
		return fmt.Errorf("ingesting %s candle: %w", m.cfg.Market, err)
	}
	if !accepted {
		return nil
	}

	closes := snapshot.Closes()

	if candle.Timeframe == shared.OneHour {
		m.htfTrend = indicator.TrendDirection(closes, m.cfg.Params.EMAPeriod, m.cfg.Params.TrendTolerancePercent)
	}

	state := shared.IndicatorState{Trend: m.htfTrend}
	state.OscillatorFast, state.OscillatorSlow, state.OscillatorValid = indicator.Oscillator(closes,
		m.cfg.Params.RSIPeriod, m.cfg.Params.OscillatorFastPeriod, m.cfg.Params.OscillatorSlowPeriod)
	state.BandUpper, state.BandMiddle, state.BandLower, state.BandsValid = indicator.BollingerBands(closes,
		m.cfg.Params.BandPeriod, m.cfg.Params.BandMultiplier)

	m.cfg.RelayMarketUpdate(shared.NewMarketUpdateSignal(*candle, state))

	return nil
}

// Trend returns the current higher timeframe trend for the market.
func (m *Market) Trend() shared.Trend {
	return m.htfTrend
}

// SetCaughtUp flags the market as having ingested its initial history.
func (m *Market) SetCaughtUp() {
	m.caughtUp.Store(true)
}

// CaughtUp reports whether the market has ingested its initial history.
func (m *Market) CaughtUp() bool {
	return m.caughtUp.Load()
}
