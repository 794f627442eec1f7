package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"crypto-bob-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	P2P       P2PConfig       `mapstructure:"p2p"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// MongoConfig encapsulates document store connectivity.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	AuthSource     string        `mapstructure:"auth_source"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// ResolveURI returns the explicit URI or one assembled from discrete parts.
func (m MongoConfig) ResolveURI() string {
	if m.URI != "" {
		return m.URI
	}

	host := m.Host
	if host == "" {
		host = "localhost"
	}
	port := m.Port
	if port <= 0 {
		port = 27017
	}

	uri := "mongodb://"
	if m.Username != "" {
		uri += url.UserPassword(m.Username, m.Password).String() + "@"
	}
	uri += fmt.Sprintf("%s:%d/%s", host, port, m.Database)
	if m.AuthSource != "" {
		uri += "?authSource=" + url.QueryEscape(m.AuthSource)
	}
	return uri
}

// SchedulerConfig governs the two sampling cadences.
type SchedulerConfig struct {
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	AnalysisInterval time.Duration `mapstructure:"analysis_interval"`
	AlignToBucket    bool          `mapstructure:"align_to_bucket"`
	RunAtStart       bool          `mapstructure:"run_at_start"`
	StartupDelay     time.Duration `mapstructure:"startup_delay"`
}

// CoinGeckoConfig covers the BTC/USD price source.
type CoinGeckoConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	CoinID         string        `mapstructure:"coin_id"`
	VsCurrency     string        `mapstructure:"vs_currency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// P2PConfig captures Binance P2P order book connectivity.
type P2PConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Asset          string        `mapstructure:"asset"`
	Fiat           string        `mapstructure:"fiat"`
	TradeType      string        `mapstructure:"trade_type"`
	Rows           int           `mapstructure:"rows"`
	TopOffers      int           `mapstructure:"top_offers"`
	OnlyVerified   bool          `mapstructure:"only_verified"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AnalysisConfig tunes the trend analyzer.
type AnalysisConfig struct {
	Window          time.Duration `mapstructure:"window"`
	MaxSamples      int           `mapstructure:"max_samples"`
	USDTBOBPct      float64       `mapstructure:"usdt_bob_threshold_pct"`
	BTCUSDPct       float64       `mapstructure:"btc_usd_threshold_pct"`
	NotifyOnStartup bool          `mapstructure:"notify_on_startup"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	// .env is optional; environment always wins over file values
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOBWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bobwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("mongo.host", "localhost")
	v.SetDefault("mongo.port", 27017)
	v.SetDefault("mongo.database", "cripto")
	v.SetDefault("mongo.collection", "precios")
	v.SetDefault("mongo.auth_source", "admin")
	v.SetDefault("mongo.connect_timeout", "5s")

	v.SetDefault("scheduler.sample_interval", "10m")
	v.SetDefault("scheduler.analysis_interval", "4h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.run_at_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.coin_id", "bitcoin")
	v.SetDefault("coingecko.vs_currency", "usd")
	v.SetDefault("coingecko.request_timeout", "10s")
	v.SetDefault("coingecko.user_agent", "bobwatcher/1.0")

	v.SetDefault("p2p.base_url", "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search")
	v.SetDefault("p2p.asset", "USDT")
	v.SetDefault("p2p.fiat", "BOB")
	v.SetDefault("p2p.trade_type", "BUY")
	v.SetDefault("p2p.rows", 10)
	v.SetDefault("p2p.top_offers", 10)
	v.SetDefault("p2p.only_verified", true)
	v.SetDefault("p2p.max_attempts", 3)
	v.SetDefault("p2p.retry_backoff", "1m")
	v.SetDefault("p2p.request_timeout", "15s")
	v.SetDefault("p2p.user_agent", "bobwatcher/1.0")

	v.SetDefault("analysis.window", "4h")
	v.SetDefault("analysis.max_samples", 1000)
	v.SetDefault("analysis.usdt_bob_threshold_pct", 2.0)
	v.SetDefault("analysis.btc_usd_threshold_pct", 5.0)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.SampleInterval <= 0 {
		return fmt.Errorf("scheduler.sample_interval must be greater than zero")
	}
	if c.Scheduler.AnalysisInterval <= 0 {
		return fmt.Errorf("scheduler.analysis_interval must be greater than zero")
	}
	if c.Analysis.Window <= 0 {
		return fmt.Errorf("analysis.window must be greater than zero")
	}
	if c.Analysis.USDTBOBPct < 0 || c.Analysis.BTCUSDPct < 0 {
		return fmt.Errorf("analysis thresholds cannot be negative")
	}
	if c.P2P.MaxAttempts <= 0 {
		return fmt.Errorf("p2p.max_attempts must be greater than zero")
	}
	if c.P2P.TopOffers <= 0 {
		return fmt.Errorf("p2p.top_offers must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
