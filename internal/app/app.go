package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"topflow/internal/alerting"
	"topflow/internal/config"
	"topflow/internal/fetcher"
	"topflow/internal/scheduler"
	"topflow/internal/service"
	"topflow/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewTwelveData(fetcher.TwelveDataOptions{
		BaseURL:           a.Config.Quote.BaseURL,
		APIKey:            a.Config.Quote.APIKey,
		Exchange:          a.Config.Quote.Exchange,
		Timeout:           a.Config.Quote.RequestTimeout,
		UserAgent:         a.Config.Quote.UserAgent,
		RequestsPerMinute: a.Config.Quote.RequestsPerMinute,
	}, a.Logger)
}

// newNotifier returns nil when no destination is configured.
func (a *App) newNotifier() alerting.Notifier {
	cfg := a.Config.Alerting
	if !cfg.Enabled {
		return nil
	}

	var notifiers alerting.Multi
	if cfg.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alerting.NewDiscordNotifier(cfg.Discord.WebhookURL, cfg.Discord.Username, cfg.MaxMessageLength, cfg.RequestTimeout, a.Logger))
	}
	if cfg.Telegram.Enabled {
		notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.MaxMessageLength, cfg.RequestTimeout, a.Logger))
	}

	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running screening service. Missing delivery
// configuration is reported before any cycle runs.
func (a *App) Run(ctx context.Context) error {
	if err := a.Config.ValidateDelivery(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var locker storage.AdvisoryLocker
	if a.Config.Scheduler.AdvisoryLockKey != 0 {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			a.Logger.Warn().Msg("scheduler.advisory_lock_key set but database.dsn not configured; replica coordination disabled")
		} else {
			locker = store
			defer closeStore()
		}
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Cron:         a.Config.Scheduler.Cron,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	svc := service.New(a.Config, sched, a.newFetcher(), a.newNotifier(), locker, a.Logger)

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Str("cron", a.Config.Scheduler.Cron).
		Msg("starting top flow screener")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("top flow screener stopped")
	return nil
}
