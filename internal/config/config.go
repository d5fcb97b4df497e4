package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"topflow/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// QuoteConfig captures Twelve Data connectivity.
type QuoteConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Exchange          string        `mapstructure:"exchange"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// SchedulerConfig governs cycle cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	Cron            string        `mapstructure:"cron"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. It is only used to
// coordinate replicas through an advisory lock.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled          bool           `mapstructure:"enabled"`
	RequestTimeout   time.Duration  `mapstructure:"request_timeout"`
	MaxMessageLength int            `mapstructure:"max_message_length"`
	Discord          DiscordConfig  `mapstructure:"discord"`
	Telegram         TelegramConfig `mapstructure:"telegram"`
}

// DiscordConfig describes the Discord webhook destination.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
}

// TelegramConfig describes the Telegram destination.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// legacyEnv binds the environment names the screener has always read.
var legacyEnv = map[string]string{
	"quote.api_key":                "TWELVE_DATA_API_KEY",
	"alerting.discord.webhook_url": "DISCORD_WEBHOOK_URL",
}

// LoadEnvFile loads a dotenv file into the process environment. Variables that
// are already set win. A missing file is only an error when path was explicit.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envKey := "TOPFLOW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

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
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "topflow")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("quote.api_key", "")
	v.SetDefault("quote.base_url", "https://api.twelvedata.com")
	v.SetDefault("quote.exchange", "NASDAQ")
	v.SetDefault("quote.request_timeout", "10s")
	v.SetDefault("quote.user_agent", "topflow/1.0")
	v.SetDefault("quote.requests_per_minute", 0)

	v.SetDefault("scheduler.interval", "30m")
	v.SetDefault("scheduler.cron", "")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0))

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 2)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.request_timeout", "10s")
	v.SetDefault("alerting.max_message_length", 1000)
	v.SetDefault("alerting.discord.webhook_url", "")
	v.SetDefault("alerting.discord.username", "")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
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
	if strings.TrimSpace(c.Quote.APIKey) == "" {
		return fmt.Errorf("quote.api_key must be set (TWELVE_DATA_API_KEY)")
	}
	if c.Scheduler.Interval <= 0 && c.Scheduler.Cron == "" {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Quote.RequestsPerMinute < 0 {
		return fmt.Errorf("quote.requests_per_minute cannot be negative")
	}
	if c.Alerting.MaxMessageLength < 0 {
		return fmt.Errorf("alerting.max_message_length cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// ValidateDelivery requires at least one alert destination.
func (c *Config) ValidateDelivery() error {
	if !c.Alerting.Enabled {
		return fmt.Errorf("alerting.enabled is false; no destination to deliver to")
	}
	if !c.HasDestination() {
		return fmt.Errorf("alerting.discord.webhook_url must be set (DISCORD_WEBHOOK_URL) or alerting.telegram enabled")
	}
	return nil
}

// HasDestination reports whether any delivery destination is configured.
func (c *Config) HasDestination() bool {
	return strings.TrimSpace(c.Alerting.Discord.WebhookURL) != "" || c.Alerting.Telegram.Enabled
}
