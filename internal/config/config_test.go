package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
items:
  - shop_id: "581472460"
    item_id: "28841260015"
notifications:
  telegram:
    bot_token: test-token
    chat_id: "12345"
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				require.Len(t, cfg.Items, 1)
				assert.Equal(t, "581472460_28841260015", cfg.Items[0].Key())
				assert.Equal(t, "telegram", cfg.Notifications.Backend)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://shopee.co.id", cfg.Shopee.BaseURL)
				assert.Equal(t, 15*time.Second, cfg.Shopee.Timeout)
				assert.Equal(t, 3, cfg.Shopee.MaxAttempts)
				assert.Equal(t, 2*time.Second, cfg.Shopee.RetryDelay)
				assert.True(t, cfg.Shopee.WarmUpEnabled())
				assert.Equal(t, []string{"standard", "pc", "mobile", "html"}, cfg.Shopee.Strategies)
				assert.Equal(t, 1.0, cfg.Shopee.RateLimit.PerSecond)
				assert.Equal(t, 3, cfg.Shopee.RateLimit.Burst)
				assert.Equal(t, 5*time.Minute, cfg.Schedule.Interval)
				assert.Equal(t, 60*time.Second, cfg.Schedule.RecoveryInterval)
				assert.Equal(t, 2*time.Second, cfg.Schedule.ItemDelay)
				assert.Empty(t, cfg.Schedule.Heartbeat)
				assert.Equal(t, "file", cfg.State.Backend)
				assert.Equal(t, "product_state.json", cfg.State.Path)
				assert.Equal(t, "https://api.telegram.org", cfg.Notifications.Telegram.APIURL)
				assert.Equal(t, 3, cfg.Notifications.PriorityRepeat)
				assert.Equal(t, 2*time.Second, cfg.Notifications.RepeatDelay)
				assert.Equal(t, int64(5), cfg.Notifications.LowStockThreshold)
				assert.Equal(t, "Rp", cfg.Notifications.Currency)
				assert.False(t, cfg.Server.Enabled)
				assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
				assert.Equal(t, "stock-monitor", cfg.Telemetry.ServiceName)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "interval below minimum is clamped with warning",
			yaml: minimalYAML + `
schedule:
  interval: 10s
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, MinInterval, cfg.Schedule.Interval)
				require.Len(t, cfg.Warnings, 1)
				assert.Contains(t, cfg.Warnings[0], "raised to minimum")
			},
		},
		{
			name: "fetch timeout clamped into bounds",
			yaml: minimalYAML + `
shopee:
  timeout: 2m
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 30*time.Second, cfg.Shopee.Timeout)
				assert.NotEmpty(t, cfg.Warnings)
			},
		},
		{
			name: "warm up can be disabled",
			yaml: minimalYAML + `
shopee:
  warm_up: false
  strategies: [pc, html]
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.False(t, cfg.Shopee.WarmUpEnabled())
				assert.Equal(t, []string{"pc", "html"}, cfg.Shopee.Strategies)
			},
		},
		{
			name: "credentials from environment",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
`,
			envVars: map[string]string{
				"TELEGRAM_BOT_TOKEN": "env-token",
				"TELEGRAM_CHAT_ID":   "-100200",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "env-token", cfg.Notifications.Telegram.BotToken)
				assert.Equal(t, "-100200", cfg.Notifications.Telegram.ChatID)
			},
		},
		{
			name: "env var substitution in yaml",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
notifications:
  backend: discord
  discord:
    webhook_url: ${TEST_STOCKMON_WEBHOOK}
`,
			envVars: map[string]string{"TEST_STOCKMON_WEBHOOK": "https://discord.com/api/webhooks/9"},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://discord.com/api/webhooks/9", cfg.Notifications.Discord.WebhookURL)
			},
		},
		{
			name: "monitor interval override",
			yaml: minimalYAML,
			envVars: map[string]string{
				"MONITOR_INTERVAL": "2m",
				"STATE_PATH":       "/var/lib/stock-monitor/state.json",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 2*time.Minute, cfg.Schedule.Interval)
				assert.Equal(t, "/var/lib/stock-monitor/state.json", cfg.State.Path)
			},
		},
		{
			name: "missing telegram credentials",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
`,
			envVars: map[string]string{
				"TELEGRAM_BOT_TOKEN": "",
				"TELEGRAM_CHAT_ID":   "",
			},
			wantErr: "TELEGRAM_BOT_TOKEN",
		},
		{
			name: "no items",
			yaml: `
notifications:
  backend: none
`,
			wantErr: "items must list at least one product",
		},
		{
			name: "non numeric ids",
			yaml: `
items:
  - shop_id: "abc"
    item_id: "2"
notifications:
  backend: none
`,
			wantErr: "items[0].shop_id must be numeric",
		},
		{
			name: "duplicate items",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
  - shop_id: "1"
    item_id: "2"
notifications:
  backend: none
`,
			wantErr: "duplicates 1_2",
		},
		{
			name: "unknown strategy",
			yaml: minimalYAML + `
shopee:
  strategies: [standard, graphql]
`,
			wantErr: `unknown strategy "graphql"`,
		},
		{
			name: "postgres backend requires connection settings",
			yaml: minimalYAML + `
state:
  backend: postgres
`,
			wantErr: "required when backend is postgres",
		},
		{
			name: "invalid notification backend",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
notifications:
  backend: carrier-pigeon
`,
			wantErr: "notifications.backend must be one of",
		},
		{
			name: "discord backend requires webhook",
			yaml: `
items:
  - shop_id: "1"
    item_id: "2"
notifications:
  backend: discord
`,
			envVars: map[string]string{"DISCORD_WEBHOOK_URL": ""},
			wantErr: "webhook_url is required",
		},
		{
			name:    "invalid yaml",
			yaml:    "items: [",
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
shopee:
  base_url: http://localhost:8089
  timeout: 20s
  max_attempts: 5
  retry_delay: 500ms
  rate_limit:
    per_second: 0.5
    burst: 1
items:
  - shop_id: "581472460"
    item_id: "28841260015"
    label: Suno AI Pro Plan
  - shop_id: "1"
    item_id: "2"
schedule:
  interval: 2m
  recovery_interval: 30s
  item_delay: 5s
  heartbeat: "0 9 * * *"
state:
  backend: postgres
  database:
    host: db.example.com
    port: 5433
    name: stockmon
    user: admin
    password: pass
    sslmode: require
    pool_size: 2
notifications:
  backend: none
  priority_repeat: 5
  repeat_delay: 1s
  low_stock_threshold: 10
  currency: "$"
  notify_on_start: true
  notify_on_stop: true
  report_errors: true
server:
  enabled: true
  host: 127.0.0.1
  port: 9090
telemetry:
  otlp_endpoint: localhost:4317
  insecure: true
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "http://localhost:8089", cfg.Shopee.BaseURL)
				assert.Equal(t, 20*time.Second, cfg.Shopee.Timeout)
				assert.Equal(t, 5, cfg.Shopee.MaxAttempts)
				assert.Equal(t, 500*time.Millisecond, cfg.Shopee.RetryDelay)
				assert.Equal(t, 0.5, cfg.Shopee.RateLimit.PerSecond)
				require.Len(t, cfg.Items, 2)
				assert.Equal(t, "Suno AI Pro Plan", cfg.Items[0].Label)
				assert.Equal(t, 30*time.Second, cfg.Schedule.RecoveryInterval)
				assert.Equal(t, 5*time.Second, cfg.Schedule.ItemDelay)
				assert.Equal(t, "0 9 * * *", cfg.Schedule.Heartbeat)
				assert.Equal(t, "postgres", cfg.State.Backend)
				assert.Equal(t, 5433, cfg.State.Database.Port)
				assert.Equal(t, 5, cfg.Notifications.PriorityRepeat)
				assert.Equal(t, int64(10), cfg.Notifications.LowStockThreshold)
				assert.Equal(t, "$", cfg.Notifications.Currency)
				assert.True(t, cfg.Notifications.NotifyOnStart)
				assert.True(t, cfg.Notifications.NotifyOnStop)
				assert.True(t, cfg.Notifications.ReportErrors)
				assert.True(t, cfg.Server.Enabled)
				assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
				assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_NotificationBackendOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - shop_id: "1"
    item_id: "2"
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")

	cfg, err := Load(path, WithNotificationBackend("none"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Notifications.Backend)
}

func TestLoad_NegativeDurationsUseDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+`
shopee:
  retry_delay: -1s
schedule:
  recovery_interval: -30s
  item_delay: -2s
`), 0o644))

	cfg, err := Load(path, WithNotificationBackend("none"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Shopee.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.Schedule.RecoveryInterval)
	assert.Equal(t, 2*time.Second, cfg.Schedule.ItemDelay)
	assert.Len(t, cfg.Warnings, 3)
	assert.Contains(t, cfg.Warnings[0], "shopee.retry_delay -1s is negative")
}

func TestLoad_NegativeRepeatDelayUsesDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - shop_id: "1"
    item_id: "2"
notifications:
  backend: none
  repeat_delay: -5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Notifications.RepeatDelay)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "notifications.repeat_delay")
}

func TestLoad_FileNotFoundUsesEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "1")

	// No items can come from the environment, so validation still fails,
	// but the missing file itself is tolerated.
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "reading config file")
	assert.Contains(t, err.Error(), "items must list at least one product")
}

func TestLoad_UnreadablePath(t *testing.T) {
	t.Parallel()

	// A directory cannot be read as a file.
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "fields DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "stockmon",
				User:     "monitor",
				Password: "secret",
				SSLMode:  "disable",
				PoolSize: 4,
			},
			want: "host=localhost port=5432 dbname=stockmon user=monitor password=secret sslmode=disable pool_max_conns=4",
		},
		{
			name: "url wins",
			cfg: DatabaseConfig{
				URL:  "postgres://u:p@db:5432/stockmon",
				Host: "ignored",
			},
			want: "postgres://u:p@db:5432/stockmon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
