// Package config handles loading and validating the monitor configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// MinInterval is the shortest allowed polling interval. Lower values are
// raised to it.
const MinInterval = 60 * time.Second

// Fetch timeout bounds.
const (
	minFetchTimeout = 10 * time.Second
	maxFetchTimeout = 30 * time.Second
)

// Config is the top-level application configuration.
type Config struct {
	Shopee        ShopeeConfig         `yaml:"shopee"`
	Items         []domain.TrackedItem `yaml:"items"`
	Schedule      ScheduleConfig       `yaml:"schedule"`
	State         StateConfig          `yaml:"state"`
	Notifications NotificationsConfig  `yaml:"notifications"`
	Server        ServerConfig         `yaml:"server"`
	Telemetry     TelemetryConfig      `yaml:"telemetry"`
	Logging       LoggingConfig        `yaml:"logging"`

	// Warnings collects non-fatal adjustments made while loading, such as
	// clamped intervals. The caller logs them once a logger exists.
	Warnings []string `yaml:"-"`
}

// ShopeeConfig defines how product data is fetched.
type ShopeeConfig struct {
	BaseURL     string          `yaml:"base_url"`
	Timeout     time.Duration   `yaml:"timeout"`
	MaxAttempts int             `yaml:"max_attempts"`
	RetryDelay  time.Duration   `yaml:"retry_delay"`
	WarmUp      *bool           `yaml:"warm_up"`
	Strategies  []string        `yaml:"strategies"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// WarmUpEnabled reports whether the session warm-up request is enabled
// (default: true).
func (s *ShopeeConfig) WarmUpEnabled() bool {
	return s.WarmUp == nil || *s.WarmUp
}

// RateLimitConfig defines outbound request pacing.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"` // 0 means unlimited
}

// ScheduleConfig defines the monitoring loop timing.
type ScheduleConfig struct {
	Interval         time.Duration `yaml:"interval"`
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
	ItemDelay        time.Duration `yaml:"item_delay"`
	Heartbeat        string        `yaml:"heartbeat"` // cron spec, empty disables
}

// StateConfig selects and configures the availability state backend.
type StateConfig struct {
	Backend  string         `yaml:"backend"` // file, postgres
	Path     string         `yaml:"path"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string. An explicit URL wins over
// the individual fields.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// NotificationsConfig defines the chat backend and message behavior.
type NotificationsConfig struct {
	Backend           string         `yaml:"backend"` // telegram, discord, none
	Telegram          TelegramConfig `yaml:"telegram"`
	Discord           DiscordConfig  `yaml:"discord"`
	PriorityRepeat    int            `yaml:"priority_repeat"`
	RepeatDelay       time.Duration  `yaml:"repeat_delay"`
	LowStockThreshold int64          `yaml:"low_stock_threshold"`
	Currency          string         `yaml:"currency"`
	NotifyOnStart     bool           `yaml:"notify_on_start"`
	NotifyOnStop      bool           `yaml:"notify_on_stop"`
	ReportErrors      bool           `yaml:"report_errors"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// ServerConfig defines the optional ops HTTP server.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TelemetryConfig defines OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables tracing export
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

var numericID = regexp.MustCompile(`^[0-9]+$`)

// LoadOption adjusts the parsed configuration before defaults and
// validation run.
type LoadOption func(*Config)

// WithNotificationBackend forces notifications.backend. Runs that only log
// their messages pass "none" so chat credentials are not required.
func WithNotificationBackend(name string) LoadOption {
	return func(cfg *Config) {
		cfg.Notifications.Backend = name
	}
}

// Load reads and parses a YAML config file, performing .env loading,
// environment variable substitution, overrides and validation. A missing
// file is not an error: defaults plus environment are used instead.
func Load(path string, opts ...LoadOption) (*Config, error) {
	// A .env file next to the working directory is optional.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("config file %q not found, using defaults and environment", path))
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnv(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Discord.WebhookURL = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.State.Database.URL = v
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Schedule.Interval = d
		} else {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("ignoring MONITOR_INTERVAL=%q: %v", v, err))
		}
	}
}

func applyDefaults(cfg *Config) {
	applyShopeeDefaults(cfg)
	applyScheduleDefaults(cfg)
	applyStateDefaults(&cfg.State)
	applyNotificationDefaults(cfg)
	applyServerDefaults(&cfg.Server)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyShopeeDefaults(cfg *Config) {
	s := &cfg.Shopee
	if s.BaseURL == "" {
		s.BaseURL = "https://shopee.co.id"
	}
	switch {
	case s.Timeout == 0:
		s.Timeout = 15 * time.Second
	case s.Timeout < minFetchTimeout:
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("shopee.timeout %s raised to %s", s.Timeout, minFetchTimeout))
		s.Timeout = minFetchTimeout
	case s.Timeout > maxFetchTimeout:
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("shopee.timeout %s lowered to %s", s.Timeout, maxFetchTimeout))
		s.Timeout = maxFetchTimeout
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 3
	}
	s.RetryDelay = durationOrDefault(cfg, "shopee.retry_delay", s.RetryDelay, 2*time.Second)
	if len(s.Strategies) == 0 {
		s.Strategies = []string{"standard", "pc", "mobile", "html"}
	}
	if s.RateLimit.PerSecond == 0 {
		s.RateLimit.PerSecond = 1.0
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = 3
	}
}

func applyScheduleDefaults(cfg *Config) {
	s := &cfg.Schedule
	switch {
	case s.Interval == 0:
		s.Interval = 5 * time.Minute
	case s.Interval < MinInterval:
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("schedule.interval %s raised to minimum %s", s.Interval, MinInterval))
		s.Interval = MinInterval
	}
	s.RecoveryInterval = durationOrDefault(cfg, "schedule.recovery_interval", s.RecoveryInterval, 60*time.Second)
	s.ItemDelay = durationOrDefault(cfg, "schedule.item_delay", s.ItemDelay, 2*time.Second)
}

// durationOrDefault returns d, or def when d is unset. A negative d would
// turn a pause into a busy loop, so it is replaced by def with a warning.
func durationOrDefault(cfg *Config, field string, d, def time.Duration) time.Duration {
	switch {
	case d == 0:
		return def
	case d < 0:
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("%s %s is negative, using %s", field, d, def))
		return def
	default:
		return d
	}
}

func applyStateDefaults(s *StateConfig) {
	if s.Backend == "" {
		s.Backend = "file"
	}
	if s.Path == "" {
		s.Path = "product_state.json"
	}
	if s.Database.Port == 0 {
		s.Database.Port = 5432
	}
	if s.Database.SSLMode == "" {
		s.Database.SSLMode = "disable"
	}
	if s.Database.PoolSize == 0 {
		s.Database.PoolSize = 4
	}
}

func applyNotificationDefaults(cfg *Config) {
	n := &cfg.Notifications
	if n.Backend == "" {
		n.Backend = "telegram"
	}
	if n.Telegram.APIURL == "" {
		n.Telegram.APIURL = "https://api.telegram.org"
	}
	if n.PriorityRepeat == 0 {
		n.PriorityRepeat = 3
	}
	n.RepeatDelay = durationOrDefault(cfg, "notifications.repeat_delay", n.RepeatDelay, 2*time.Second)
	if n.LowStockThreshold == 0 {
		n.LowStockThreshold = 5
	}
	if n.Currency == "" {
		n.Currency = "Rp"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "stock-monitor"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

var knownStrategies = map[string]struct{}{
	"standard": {},
	"pc":       {},
	"mobile":   {},
	"html":     {},
}

func validate(cfg *Config) error {
	var errs []error

	if len(cfg.Items) == 0 {
		errs = append(errs, fmt.Errorf("items must list at least one product"))
	}
	seen := make(map[string]struct{}, len(cfg.Items))
	for i, item := range cfg.Items {
		if !numericID.MatchString(item.ShopID) {
			errs = append(errs, fmt.Errorf("items[%d].shop_id must be numeric (got %q)", i, item.ShopID))
		}
		if !numericID.MatchString(item.ItemID) {
			errs = append(errs, fmt.Errorf("items[%d].item_id must be numeric (got %q)", i, item.ItemID))
		}
		if _, dup := seen[item.Key()]; dup {
			errs = append(errs, fmt.Errorf("items[%d] duplicates %s", i, item.Key()))
		}
		seen[item.Key()] = struct{}{}
	}

	for _, name := range cfg.Shopee.Strategies {
		if _, ok := knownStrategies[name]; !ok {
			errs = append(errs, fmt.Errorf(
				"shopee.strategies: unknown strategy %q (want standard, pc, mobile, html)", name))
		}
	}

	switch cfg.State.Backend {
	case "file":
	case "postgres":
		if cfg.State.Database.URL == "" &&
			(cfg.State.Database.Host == "" || cfg.State.Database.Name == "" || cfg.State.Database.User == "") {
			errs = append(errs, fmt.Errorf(
				"state.database.url or host, name and user are required when backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"state.backend must be one of: file, postgres (got %q)", cfg.State.Backend))
	}

	switch cfg.Notifications.Backend {
	case "telegram":
		if cfg.Notifications.Telegram.BotToken == "" {
			errs = append(errs, fmt.Errorf("TELEGRAM_BOT_TOKEN (notifications.telegram.bot_token) is required"))
		}
		if cfg.Notifications.Telegram.ChatID == "" {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID (notifications.telegram.chat_id) is required"))
		}
	case "discord":
		if cfg.Notifications.Discord.WebhookURL == "" {
			errs = append(errs, fmt.Errorf(
				"notifications.discord.webhook_url is required when backend is discord"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf(
			"notifications.backend must be one of: telegram, discord, none (got %q)",
			cfg.Notifications.Backend))
	}

	if cfg.Notifications.PriorityRepeat < 1 {
		errs = append(errs, fmt.Errorf("notifications.priority_repeat must be at least 1"))
	}

	return errors.Join(errs...)
}
