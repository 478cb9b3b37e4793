package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"smartmoney/fetch"
)

const (
	// defaultPollIntervalSeconds is the default exchange polling cadence.
	defaultPollIntervalSeconds = 60
)

// Config is the configuration struct for the service.
type Config struct {
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
	// DatabaseEndpoint is the rqlite endpoint, optional.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
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

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("markets", &cfg.Markets, "the tracked markets")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("binancebaseurl", &cfg.BinanceBaseURL, "the binance futures api base url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("pollintervalseconds", &cfg.PollIntervalSeconds, "the exchange polling cadence in seconds")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("telegrambottoken", &cfg.TelegramBotToken, "the telegram bot token")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("telegramchatid", &cfg.TelegramChatID, "the telegram chat id")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("strategyconfigpath", &cfg.StrategyConfigPath, "the strategy thresholds yaml path")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DatabaseEndpoint, "the rqlite database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DatabaseUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DatabasePass, "the database user pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.BinanceBaseURL == "" {
		cfg.BinanceBaseURL = fetch.BaseURL
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = defaultPollIntervalSeconds
	}

	return cfg.Validate()
}
