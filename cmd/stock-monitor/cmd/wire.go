package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/stock-monitor/internal/config"
	"github.com/donaldgifford/stock-monitor/internal/engine"
	"github.com/donaldgifford/stock-monitor/internal/notify"
	"github.com/donaldgifford/stock-monitor/internal/shopee"
	"github.com/donaldgifford/stock-monitor/internal/state"
	"github.com/donaldgifford/stock-monitor/pkg/logger"
)

// loadConfig reads the config file and builds the logger, logging any
// adjustments the loader made.
func loadConfig(opts ...config.LoadOption) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	for _, w := range cfg.Warnings {
		log.Warn("config adjusted", "detail", w)
	}
	return cfg, log, nil
}

// monitor bundles the wired components and their cleanup.
type monitor struct {
	client *shopee.Client
	engine *engine.Engine
	store  state.Store
	close  func()
}

func buildFetcher(cfg *config.Config, log *slog.Logger) (*shopee.Client, *shopee.Fetcher, error) {
	sc := cfg.Shopee
	client, err := shopee.NewClient(sc.BaseURL,
		shopee.WithTimeout(sc.Timeout),
		shopee.WithRetry(sc.MaxAttempts, sc.RetryDelay),
		shopee.WithWarmUp(sc.WarmUpEnabled()),
		shopee.WithRateLimiter(shopee.NewRateLimiter(
			sc.RateLimit.PerSecond, sc.RateLimit.Burst, sc.RateLimit.DailyLimit,
		)),
		shopee.WithClientLogger(log),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating shopee client: %w", err)
	}

	strategies, err := shopee.NewStrategies(client, sc.Strategies)
	if err != nil {
		return nil, nil, err
	}
	return client, shopee.NewFetcher(strategies, shopee.WithFetcherLogger(log)), nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (state.Store, func(), error) {
	switch cfg.State.Backend {
	case "postgres":
		pg, err := state.NewPostgresStore(ctx, cfg.State.Database.DSN(), state.WithPostgresLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("configuring postgres state store: %w", err)
		}
		log.Info("using postgres state store")
		return pg, pg.Close, nil
	default:
		log.Info("using file state store", "path", cfg.State.Path)
		return state.NewFileStore(cfg.State.Path, state.WithFileLogger(log)), func() {}, nil
	}
}

func buildNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	n := cfg.Notifications
	switch n.Backend {
	case "telegram":
		return notify.NewTelegramNotifier(n.Telegram.BotToken, n.Telegram.ChatID,
			notify.WithTelegramAPIURL(n.Telegram.APIURL))
	case "discord":
		return notify.NewDiscordNotifier(n.Discord.WebhookURL)
	default:
		return notify.NewNoOpNotifier(log)
	}
}

// buildMonitor wires fetcher, store, notifier and engine from cfg. When
// quiet is set notifications are logged instead of sent.
func buildMonitor(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	quiet bool,
) (*monitor, error) {
	client, fetcher, err := buildFetcher(cfg, log)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		client.Close()
		return nil, err
	}

	var notifier notify.Notifier
	if quiet {
		notifier = notify.NewNoOpNotifier(log)
	} else {
		notifier = buildNotifier(cfg, log)
	}

	n := cfg.Notifications
	dispatcher := notify.NewDispatcher(notifier,
		notify.WithPriorityRepeat(n.PriorityRepeat, n.RepeatDelay),
		notify.WithDispatcherLogger(log),
	)
	messages := notify.NewMessageBuilder(cfg.Shopee.BaseURL,
		notify.WithCurrency(n.Currency),
		notify.WithLowStockThreshold(n.LowStockThreshold),
	)

	eng := engine.NewEngine(fetcher, store, dispatcher, messages, cfg.Items,
		engine.WithLogger(log),
		engine.WithItemDelay(cfg.Schedule.ItemDelay),
	)

	return &monitor{
		client: client,
		engine: eng,
		store:  store,
		close: func() {
			closeStore()
			client.Close()
		},
	}, nil
}
