package shared

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyParams enumerates the named detection thresholds for one market.
// Every threshold is policy rather than algorithm and is therefore surfaced
// here instead of being hard-coded in the detectors.
type StrategyParams struct {
	// Lookback is the bounded candle window size per timeframe.
	Lookback int `yaml:"lookback"`
	// RSIPeriod is the relative strength period feeding the oscillator.
	RSIPeriod int `yaml:"rsi_period"`
	// OscillatorFastPeriod smooths the oscillator fast line.
	OscillatorFastPeriod int `yaml:"oscillator_fast_period"`
	// OscillatorSlowPeriod smooths the oscillator slow line.
	OscillatorSlowPeriod int `yaml:"oscillator_slow_period"`
	// BandPeriod is the bollinger band moving average period.
	BandPeriod int `yaml:"band_period"`
	// BandMultiplier is the bollinger band standard deviation multiplier.
	BandMultiplier float64 `yaml:"band_multiplier"`
	// EMAPeriod is the higher timeframe trend average period.
	EMAPeriod int `yaml:"ema_period"`
	// TrendTolerancePercent is the neutral band around the trend average,
	// as a percentage of the average.
	TrendTolerancePercent float64 `yaml:"trend_tolerance_percent"`
	// SweepPenetrationPercent is the minimum wick penetration beyond a swing
	// level for a liquidity sweep, as a percentage of the swing price.
	SweepPenetrationPercent float64 `yaml:"sweep_penetration_percent"`
	// WickBodyRatio is the minimum wick to body ratio for a wick rejection.
	WickBodyRatio float64 `yaml:"wick_body_ratio"`
	// MinGapPercent is the minimum fair value gap size as a percentage of price.
	MinGapPercent float64 `yaml:"min_gap_percent"`
	// ConfirmationWindow is the recency window, in low timeframe candles,
	// binding supporting confirmations to a primary event.
	ConfirmationWindow int `yaml:"confirmation_window"`
	// ShiftExpiry is the number of candles an awaited structure break stays armed.
	ShiftExpiry int `yaml:"shift_expiry"`
	// StopLossBufferPercent pads the stop loss beyond the triggering level,
	// as a percentage of the level price.
	StopLossBufferPercent float64 `yaml:"stop_loss_buffer_percent"`
	// SetupBucketSeconds is the time bucket size for setup identities.
	SetupBucketSeconds int64 `yaml:"setup_bucket_seconds"`
	// DedupHorizonMinutes is the retention horizon for emitted setup ids.
	DedupHorizonMinutes int `yaml:"dedup_horizon_minutes"`
}

// DefaultStrategyParams returns the default detection thresholds.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		Lookback:                120,
		RSIPeriod:               14,
		OscillatorFastPeriod:    1,
		OscillatorSlowPeriod:    7,
		BandPeriod:              20,
		BandMultiplier:          2.0,
		EMAPeriod:               20,
		TrendTolerancePercent:   0.05,
		SweepPenetrationPercent: 0.05,
		WickBodyRatio:           2.0,
		MinGapPercent:           0.05,
		ConfirmationWindow:      12,
		ShiftExpiry:             24,
		StopLossBufferPercent:   0.05,
		SetupBucketSeconds:      60,
		DedupHorizonMinutes:     10,
	}
}

// Validate asserts the strategy params are sane.
func (p *StrategyParams) Validate() error {
	var errs error

	if p.Lookback <= 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback must be positive"))
	}
	if p.RSIPeriod <= 0 || p.OscillatorFastPeriod <= 0 || p.OscillatorSlowPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("oscillator periods must be positive"))
	}
	if p.BandPeriod <= 0 || p.BandMultiplier <= 0 {
		errs = errors.Join(errs, fmt.Errorf("band period and multiplier must be positive"))
	}
	if p.EMAPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("ema period must be positive"))
	}
	if p.WickBodyRatio <= 0 {
		errs = errors.Join(errs, fmt.Errorf("wick body ratio must be positive"))
	}
	if p.ConfirmationWindow <= 0 {
		errs = errors.Join(errs, fmt.Errorf("confirmation window must be positive"))
	}
	if p.Lookback < p.RSIPeriod+p.OscillatorSlowPeriod || p.Lookback < p.BandPeriod || p.Lookback < p.EMAPeriod {
		errs = errors.Join(errs, fmt.Errorf("lookback is shorter than the longest indicator period"))
	}

	return errs
}

// StrategyConfig holds the default strategy params and any per-market
// overrides, keyed by market.
type StrategyConfig struct {
	Defaults StrategyParams            `yaml:"defaults"`
	Markets  map[string]StrategyParams `yaml:"markets"`
	Sessions SessionTable              `yaml:"sessions"`
}

// NewStrategyConfig returns a strategy config populated with defaults.
func NewStrategyConfig() *StrategyConfig {
	return &StrategyConfig{
		Defaults: DefaultStrategyParams(),
		Sessions: DefaultSessionTable(),
	}
}

// LoadStrategyConfig reads a strategy config from the provided yaml file. A
// missing path yields the defaults.
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	cfg := NewStrategyConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading strategy config: %w", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing strategy config: %w", err)
	}

	err = cfg.Defaults.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating default strategy params: %w", err)
	}

	for market, params := range cfg.Markets {
		err = params.Validate()
		if err != nil {
			return nil, fmt.Errorf("validating %s strategy params: %w", market, err)
		}
	}

	return cfg, nil
}

// ForMarket returns the strategy params for the provided market, falling back
// to the defaults when no override exists.
func (c *StrategyConfig) ForMarket(market string) StrategyParams {
	params, ok := c.Markets[market]
	if !ok {
		return c.Defaults
	}

	return params
}
