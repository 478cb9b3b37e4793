package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"smartmoney/database"
	"smartmoney/dedup"
	"smartmoney/engine"
	"smartmoney/fetch"
	"smartmoney/market"
	"smartmoney/notify"
	"smartmoney/shared"
	"smartmoney/structure"
)

// SmartMoneyConfig represents the configuration struct for the smart money
// service.
type SmartMoneyConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// BinanceBaseURL is the exchange api base url.
	BinanceBaseURL string
	// PollIntervalSeconds is the exchange polling cadence.
	PollIntervalSeconds int
	// TelegramBotToken is the telegram bot token.
	TelegramBotToken string
	// TelegramChatID is the telegram destination chat id.
	TelegramChatID string
	// StrategyConfigPath is the path to the yaml strategy thresholds file.
	StrategyConfigPath string
	// DatabaseEndpoint is the rqlite endpoint. Optional, setups are not
	// persisted when empty.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *SmartMoneyConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for smart money service"))
	}
	if cfg.TelegramBotToken == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram bot token cannot be an empty string"))
	}
	if cfg.TelegramChatID == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram chat id cannot be an empty string"))
	}
	if cfg.PollIntervalSeconds <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// SmartMoney represents the smart money setup detection service.
type SmartMoney struct {
	cfg              *SmartMoneyConfig
	fetchManager     *fetch.Manager
	marketManager    *market.Manager
	structureManager *structure.Manager
	setupEngine      *engine.Engine
	notifyManager    *notify.Manager
	ledger           *dedup.Ledger
	logger           *zerolog.Logger
	wg               sync.WaitGroup
}

// NewSmartMoney initializes a new smart money service.
func NewSmartMoney(ctx context.Context, cfg *SmartMoneyConfig) (*SmartMoney, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating service config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "smartmoney").Logger()

	strategy, err := shared.LoadStrategyConfig(cfg.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading strategy config: %w", err)
	}

	// Higher timeframe first so trend context precedes the candles it
	// qualifies.
	timeframes := []shared.Timeframe{shared.OneHour, shared.FiveMinute}
	jobScheduler := gocron.NewScheduler(time.UTC)

	binance, err := fetch.NewBinanceClient(&fetch.BinanceConfig{BaseURL: cfg.BinanceBaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating binance client: %w", err)
	}

	precisions := make(map[string]int, len(cfg.Markets))
	for _, mkt := range cfg.Markets {
		// A market that resolves no price is misconfigured or delisted, fail
		// fast before any jobs are scheduled.
		price, err := binance.FetchMarketPrice(ctx, mkt)
		if err != nil {
			return nil, fmt.Errorf("resolving %s market price: %w", mkt, err)
		}
		logger.Info().Msgf("tracking %s, currently priced at %f", mkt, price)

		// Display precisions are best effort, formatting falls back to a
		// default for markets that resolve none.
		precision, err := binance.FetchPricePrecision(ctx, mkt)
		if err != nil {
			logger.Warn().Msgf("fetching %s price precision: %v", mkt, err)
			continue
		}
		precisions[mkt] = precision
	}

	ledgerLogger := logger.With().Str("component", "dedup").Logger()
	ledger, err := dedup.NewLedger(&dedup.LedgerConfig{
		Horizon: time.Duration(strategy.Defaults.DedupHorizonMinutes) * time.Minute,
		Logger:  &ledgerLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dedup ledger: %w", err)
	}

	notifierLogger := logger.With().Str("component", "notifier").Logger()
	notifier, err := notify.NewTelegramClient(&notify.TelegramConfig{
		BaseURL:  notify.BaseURL,
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		Logger:   &notifierLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	notifyMgrLogger := logger.With().Str("component", "notifymanager").Logger()
	notifyMgr := notify.NewManager(&notify.ManagerConfig{
		Messenger:       notifier,
		PricePrecisions: precisions,
		Logger:          &notifyMgrLogger,
	})

	var persistSetup func(ctx context.Context, setup *shared.Setup) error
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
		persistSetup = db.PersistSetup
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	setupEngine, err := engine.NewEngine(&engine.EngineConfig{
		Strategy:     strategy,
		Ledger:       ledger,
		SignalSetup:  notifyMgr.SendSetupSignal,
		PersistSetup: persistSetup,
		Logger:       &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating setup engine: %w", err)
	}

	var marketMgr *market.Manager
	caughtUpFunc := func(signal shared.CaughtUpSignal) {
		if marketMgr != nil {
			marketMgr.SendCaughtUpSignal(signal)
		}
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Markets:             cfg.Markets,
		Timeframes:          timeframes,
		ExchangeClient:      binance,
		PollIntervalSeconds: cfg.PollIntervalSeconds,
		SignalCaughtUp:      caughtUpFunc,
		JobScheduler:        jobScheduler,
		Logger:              &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	var structureMgr *structure.Manager
	relayMarketUpdateFunc := func(signal shared.MarketUpdateSignal) {
		if structureMgr != nil {
			structureMgr.SendMarketUpdate(signal)
		}
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err = market.NewManager(&market.ManagerConfig{
		Markets:           cfg.Markets,
		Timeframes:        timeframes,
		Strategy:          strategy,
		Subscribe:         fetchMgr.Subscribe,
		RelayMarketUpdate: relayMarketUpdateFunc,
		Logger:            &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %w", err)
	}

	structureMgrLogger := logger.With().Str("component", "structuremanager").Logger()
	structureMgr, err = structure.NewManager(&structure.ManagerConfig{
		Markets:            cfg.Markets,
		Timeframes:         timeframes,
		Strategy:           strategy,
		SignalEvaluation:   setupEngine.SendEvaluationSignal,
		FetchCaughtUpState: marketMgr.FetchCaughtUpState,
		Logger:             &structureMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating structure manager: %w", err)
	}

	// Age dedup entries out on a schedule alongside on-access aging. The
	// ledger evicts against its own evaluation clock, the job only sets the
	// cadence.
	_, err = jobScheduler.Every(1).Minute().Do(func() {
		ledger.Evict()
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling ledger eviction job: %w", err)
	}

	service := &SmartMoney{
		cfg:              cfg,
		fetchManager:     fetchMgr,
		marketManager:    marketMgr,
		structureManager: structureMgr,
		setupEngine:      setupEngine,
		notifyManager:    notifyMgr,
		ledger:           ledger,
		logger:           &logger,
	}

	return service, nil
}

// Run handles the lifecycle processes of the smart money service.
func (s *SmartMoney) Run(ctx context.Context) {
	s.wg.Add(5)

	go func() {
		s.notifyManager.Run(ctx)
		s.wg.Done()
	}()

	go func() {
		s.setupEngine.Run(ctx)
		s.wg.Done()
	}()

	go func() {
		s.structureManager.Run(ctx)
		s.wg.Done()
	}()

	go func() {
		s.marketManager.Run(ctx)
		s.wg.Done()
	}()

	go func() {
		s.fetchManager.Run(ctx)
		s.wg.Done()
	}()

	s.wg.Wait()
	s.ledger.Close()
}
