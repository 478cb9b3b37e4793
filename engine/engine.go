package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"smartmoney/shared"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// DedupLedger tracks emitted setup ids over a retention horizon. Both methods
// take the evaluation clock, which is the confirming candle's open time, so
// replaying a stream reproduces the exact same suppression decisions.
type DedupLedger interface {
	// Seen reports whether the provided setup id was recorded within the
	// retention horizon as of the provided time.
	Seen(id string, now time.Time) (bool, error)
	// Record notes the provided setup id at the provided time.
	Record(id string, now time.Time) error
}

// EngineConfig represents the setup engine configuration.
type EngineConfig struct {
	// Strategy holds the per-market strategy params and session boundaries.
	Strategy *shared.StrategyConfig
	// Ledger is the dedup ledger consulted before emitting a setup.
	Ledger DedupLedger
	// SignalSetup relays a confirmed setup for delivery.
	SignalSetup func(signal shared.SetupSignal)
	// PersistSetup stores a confirmed setup. Optional, persistence failures
	// are logged and do not block delivery.
	PersistSetup func(ctx context.Context, setup *shared.Setup) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// anchorIdentity identifies the structural event a delivered setup was
// anchored on.
type anchorIdentity struct {
	direction shared.Direction
	kind      shared.EventKind
	level     float64
	date      int64
}

// Engine turns evaluation signals into deduplicated trade setups. Confirmation
// itself is stateless, inter-candle state lives in the structure detectors,
// the dedup ledger and the per-market record of the last delivered anchor.
type Engine struct {
	cfg               *EngineConfig
	evaluationSignals chan shared.EvaluationSignal
	lastAnchors       map[string]anchorIdentity
}

// NewEngine initializes a new setup engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.Strategy == nil {
		return nil, errors.New("engine requires a strategy config")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("engine requires a dedup ledger")
	}
	if cfg.SignalSetup == nil {
		return nil, errors.New("engine requires a setup relay")
	}

	return &Engine{
		cfg:               cfg,
		evaluationSignals: make(chan shared.EvaluationSignal, bufferSize),
		lastAnchors:       make(map[string]anchorIdentity),
	}, nil
}

// SendEvaluationSignal relays the provided evaluation signal for processing.
func (e *Engine) SendEvaluationSignal(signal shared.EvaluationSignal) {
	select {
	case e.evaluationSignals <- signal:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("evaluation channel at capacity: %d/%d",
			len(e.evaluationSignals), bufferSize)
	}
}

// handleEvaluationSignal processes the provided evaluation signal.
func (e *Engine) handleEvaluationSignal(ctx context.Context, signal *shared.EvaluationSignal) error {
	defer func() {
		signal.Status <- shared.Processed
	}()

	verdict := Confirm(signal.Events, signal.State.Trend)
	if verdict == nil {
		return nil
	}

	// A structural event stays in the detector's recency window for several
	// closes and re-confirms on each of them. One anchor delivers one alert.
	identity := anchorIdentity{
		direction: verdict.Direction,
		kind:      verdict.Anchor.Kind,
		level:     verdict.Anchor.Level,
		date:      verdict.Anchor.Date.Unix(),
	}
	if e.lastAnchors[signal.Market] == identity {
		e.cfg.Logger.Debug().Msgf("suppressing re-confirmation of %s %s anchor at %f",
			signal.Market, verdict.Anchor.Kind, verdict.Anchor.Level)
		return nil
	}

	params := e.cfg.Strategy.ForMarket(signal.Market)
	setup, err := BuildSetup(&signal.Candle, &signal.State, verdict, params, e.cfg.Strategy.Sessions)
	if err != nil {
		return fmt.Errorf("building %s setup: %w", signal.Market, err)
	}

	// The ledger fails closed: any error suppresses the setup rather than
	// risking a duplicate alert.
	seen, err := e.cfg.Ledger.Seen(setup.ID, signal.Candle.Date)
	if err != nil {
		return fmt.Errorf("consulting dedup ledger for %s: %w", setup.ID, err)
	}
	if seen {
		e.cfg.Logger.Debug().Msgf("suppressing duplicate setup %s", setup.ID)
		return nil
	}

	err = e.cfg.Ledger.Record(setup.ID, signal.Candle.Date)
	if err != nil {
		return fmt.Errorf("recording setup %s: %w", setup.ID, err)
	}

	e.lastAnchors[signal.Market] = identity

	e.cfg.Logger.Debug().Msgf("confirmed setup:\n%s", spew.Sdump(setup))

	if e.cfg.PersistSetup != nil {
		err = e.cfg.PersistSetup(ctx, setup)
		if err != nil {
			e.cfg.Logger.Error().Msgf("persisting setup %s: %v", setup.ID, err)
		}
	}

	e.cfg.SignalSetup(shared.NewSetupSignal(*setup))

	return nil
}

// Run manages the lifecycle processes of the setup engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-e.evaluationSignals:
			err := e.handleEvaluationSignal(ctx, &signal)
			if err != nil {
				e.cfg.Logger.Error().Msgf("handling evaluation: %v", err)
			}
		}
	}
}
