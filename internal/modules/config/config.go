package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	defaultConfigFile = "values_local.yaml"
)

// Переменные окружения, которые перекрывают файл.
var envBindings = map[string]string{
	"telegram.token":     "TELEGRAM_TOKEN",
	"telegram.admin_ids": "ADMIN_IDS",
	"db_dsn":             "DATABASE_DSN",
	"market.api_key":     "TWELVE_API_KEY",
	"redis.addr":         "REDIS_ADDR",
	"redis.password":     "REDIS_PASSWORD",
	"webhook.token":      "WEBHOOK_TOKEN",
	"service.port":       "PORT",
	"service.log_level":  "LOG_LEVEL",
	"signal_log.csv":     "SIGNALS_CSV",
	"sqlite_path":        "DB_FILE",
	"alerts.outcome":     "OUTCOME_MODE",
	"tracing.enabled":    "TRACING_ENABLED",
}

// Config ...
type Config struct {
	Service struct {
		Name     string `mapstructure:"name" yaml:"name" default:"signal_bot"`
		Host     string `mapstructure:"host" yaml:"host" default:"0.0.0.0"`
		Port     int    `mapstructure:"port" yaml:"port" default:"8080"`
		LogLevel string `mapstructure:"log_level" yaml:"log_level" default:"info"`
	} `mapstructure:"service" yaml:"service"`

	Telegram struct {
		Token    string  `mapstructure:"token" yaml:"token"`
		AdminIDs []int64 `mapstructure:"admin_ids" yaml:"admin_ids"`
		Brand    string  `mapstructure:"brand" yaml:"brand" default:"Lekzy FX Pro"`
		Tagline  string  `mapstructure:"tagline" yaml:"tagline" default:"⚡ Signal powered by Lekzy FX Premium Intelligence"`
		Workers  int     `mapstructure:"workers" yaml:"workers" default:"8"`
	} `mapstructure:"telegram" yaml:"telegram"`

	// Postgres; пусто — подписчики в sqlite, журнал только в CSV.
	DB         string `mapstructure:"db_dsn" yaml:"db_dsn"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path" default:"data/subs.db"`

	Redis struct {
		Addr     string        `mapstructure:"addr" yaml:"addr"`
		Password string        `mapstructure:"password" yaml:"password"`
		DB       int           `mapstructure:"db" yaml:"db"`
		TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" default:"20s"`
	} `mapstructure:"redis" yaml:"redis"`

	Market struct {
		APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
		BaseURL       string        `mapstructure:"base_url" yaml:"base_url" default:"https://api.twelvedata.com"`
		OKXBaseURL    string        `mapstructure:"okx_base_url" yaml:"okx_base_url" default:"https://www.okx.com"`
		Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" default:"12s"`
		PrimaryBars   int           `mapstructure:"primary_bars" yaml:"primary_bars" default:"250"`
		SecondaryBars int           `mapstructure:"secondary_bars" yaml:"secondary_bars" default:"120"`
	} `mapstructure:"market" yaml:"market"`

	Strategy struct {
		Timeframe          string  `mapstructure:"timeframe" yaml:"timeframe" default:"M1"`
		SecondaryTimeframe string  `mapstructure:"secondary_timeframe" yaml:"secondary_timeframe" default:"M5"`
		SecondaryConfirm   bool    `mapstructure:"secondary_confirm" yaml:"secondary_confirm" default:"true"`
		EMAFast            int     `mapstructure:"ema_fast" yaml:"ema_fast" default:"9"`
		EMASlow            int     `mapstructure:"ema_slow" yaml:"ema_slow" default:"21"`
		MACDFast           int     `mapstructure:"macd_fast" yaml:"macd_fast" default:"12"`
		MACDSlow           int     `mapstructure:"macd_slow" yaml:"macd_slow" default:"26"`
		MACDSignal         int     `mapstructure:"macd_signal" yaml:"macd_signal" default:"9"`
		RSIPeriod          int     `mapstructure:"rsi_period" yaml:"rsi_period" default:"14"`
		RSIBuyBelow        float64 `mapstructure:"rsi_buy_below" yaml:"rsi_buy_below" default:"40"`
		RSISellAbove       float64 `mapstructure:"rsi_sell_above" yaml:"rsi_sell_above" default:"60"`
		ATRPeriod          int     `mapstructure:"atr_period" yaml:"atr_period" default:"14"`
		MinATRRatio        float64 `mapstructure:"min_atr_ratio" yaml:"min_atr_ratio" default:"0.0003"`
		PSARStep           float64 `mapstructure:"psar_step" yaml:"psar_step" default:"0.02"`
		PSARMax            float64 `mapstructure:"psar_max" yaml:"psar_max" default:"0.2"`
		RequiredVotes      int     `mapstructure:"required_votes" yaml:"required_votes" default:"3"`
		MaxConfidence      int     `mapstructure:"max_confidence" yaml:"max_confidence" default:"98"`
		JitterMax          int     `mapstructure:"jitter_max" yaml:"jitter_max" default:"4"`
	} `mapstructure:"strategy" yaml:"strategy"`

	Scan struct {
		Symbols       []string      `mapstructure:"symbols" yaml:"symbols" default:"[\"EUR/USD\",\"GBP/USD\",\"USD/JPY\",\"AUD/USD\",\"USD/CAD\",\"NZD/USD\",\"BTC/USD\",\"ETH/USD\",\"XAU/USD\",\"XAG/USD\",\"AAPL\",\"MSFT\",\"TSLA\",\"NVDA\"]"`
		MinConfidence int           `mapstructure:"min_confidence" yaml:"min_confidence" default:"60"`
		RecentSize    int           `mapstructure:"recent_size" yaml:"recent_size" default:"6"`
		PickTries     int           `mapstructure:"pick_tries" yaml:"pick_tries" default:"12"`
		IdleWait      time.Duration `mapstructure:"idle_wait" yaml:"idle_wait" default:"60s"`
		ErrorBackoff  time.Duration `mapstructure:"error_backoff" yaml:"error_backoff" default:"5s"`
		NoSignalWait  time.Duration `mapstructure:"no_signal_wait" yaml:"no_signal_wait" default:"6s"`
		GapMin        time.Duration `mapstructure:"gap_min" yaml:"gap_min" default:"120s"`
		GapMax        time.Duration `mapstructure:"gap_max" yaml:"gap_max" default:"180s"`
	} `mapstructure:"scan" yaml:"scan"`

	Alerts struct {
		PreAlertLead     time.Duration `mapstructure:"pre_alert_lead" yaml:"pre_alert_lead" default:"30s"`
		ConfirmationLead time.Duration `mapstructure:"confirmation_lead" yaml:"confirmation_lead" default:"10s"`
		ResultDelay      time.Duration `mapstructure:"result_delay" yaml:"result_delay" default:"120s"`
		// simulated | settle
		Outcome       string        `mapstructure:"outcome" yaml:"outcome" default:"simulated"`
		DisplayZone   string        `mapstructure:"display_zone" yaml:"display_zone" default:"Africa/Lagos"`
		DisplayOffset time.Duration `mapstructure:"display_offset" yaml:"display_offset" default:"1h"`
		DrainTimeout  time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout" default:"10s"`
	} `mapstructure:"alerts" yaml:"alerts"`

	SignalLog struct {
		CSV string `mapstructure:"csv" yaml:"csv" default:"logs/signals.csv"`
	} `mapstructure:"signal_log" yaml:"signal_log"`

	Webhook struct {
		Token string `mapstructure:"token" yaml:"token"`
	} `mapstructure:"webhook" yaml:"webhook"`

	Tracing struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Host    string `mapstructure:"host" yaml:"host" default:"localhost"`
		Port    int    `mapstructure:"port" yaml:"port" default:"6831"`
	} `mapstructure:"tracing" yaml:"tracing"`
}

func NewConfig() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}
	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}

	return Load(filepath.Join(dir, name))
}

// Load читает yaml по пути (если он есть), накладывает env и дефолты.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config.Load: bind %s: %w", env, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	tf, err := helper.ParseTimeframe(c.Strategy.Timeframe)
	if err != nil {
		return fmt.Errorf("config: strategy.timeframe: %w", err)
	}
	if _, err := helper.ParseTimeframe(c.Strategy.SecondaryTimeframe); err != nil {
		return fmt.Errorf("config: strategy.secondary_timeframe: %w", err)
	}
	if c.Alerts.ConfirmationLead < 0 || c.Alerts.PreAlertLead <= c.Alerts.ConfirmationLead {
		return fmt.Errorf("config: pre_alert_lead (%s) must be greater than confirmation_lead (%s)",
			c.Alerts.PreAlertLead, c.Alerts.ConfirmationLead)
	}
	if c.Alerts.PreAlertLead >= tf.Duration() {
		return fmt.Errorf("config: pre_alert_lead (%s) must be shorter than the %s candle", c.Alerts.PreAlertLead, tf)
	}
	if c.Scan.GapMax < c.Scan.GapMin {
		return fmt.Errorf("config: scan.gap_max < scan.gap_min")
	}
	if floor := strategy.FloorConfidence(c.Strategy.RequiredVotes, c.Strategy.MaxConfidence); c.Scan.MinConfidence > floor {
		return fmt.Errorf("config: scan.min_confidence (%d) above %d, the confidence of a %d-vote signal before jitter",
			c.Scan.MinConfidence, floor, c.Strategy.RequiredVotes)
	}
	if len(c.Scan.Symbols) == 0 {
		return fmt.Errorf("config: scan.symbols is empty")
	}
	switch strings.ToLower(c.Alerts.Outcome) {
	case "simulated", "settle":
	default:
		return fmt.Errorf("config: alerts.outcome %q (want simulated|settle)", c.Alerts.Outcome)
	}
	return nil
}

func (c *Config) PrimaryTimeframe() models.Timeframe {
	tf, _ := helper.ParseTimeframe(c.Strategy.Timeframe)
	return tf
}

func (c *Config) SecondaryTimeframe() models.Timeframe {
	tf, _ := helper.ParseTimeframe(c.Strategy.SecondaryTimeframe)
	return tf
}

// IsAdmin ...
func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
