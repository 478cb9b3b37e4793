package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"smartmoney/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceCfg := service.SmartMoneyConfig{
		Markets:             cfg.Markets,
		BinanceBaseURL:      cfg.BinanceBaseURL,
		PollIntervalSeconds: cfg.PollIntervalSeconds,
		TelegramBotToken:    cfg.TelegramBotToken,
		TelegramChatID:      cfg.TelegramChatID,
		StrategyConfigPath:  cfg.StrategyConfigPath,
		DatabaseEndpoint:    cfg.DatabaseEndpoint,
		DatabaseUser:        cfg.DatabaseUser,
		DatabasePass:        cfg.DatabasePass,
		Cancel:              cancel,
	}
	smartMoney, err := service.NewSmartMoney(ctx, &serviceCfg)
	if err != nil {
		log.Printf("creating smart money service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	smartMoney.Run(ctx)
}
