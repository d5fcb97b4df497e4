package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"topflow/internal/alerting"
	"topflow/internal/config"
	"topflow/internal/fetcher"
	"topflow/internal/flow"
	"topflow/internal/quote"
	"topflow/internal/scheduler"
	"topflow/internal/storage"
)

// Service orchestrates sampling, ranking, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	quotes    fetcher.QuoteFetcher
	notifier  alerting.Notifier
	watchlist []string
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64
}

// Skip records a symbol left out of a cycle and why.
type Skip struct {
	Symbol string
	Err    error
}

// Report summarises one cycle for in-process callers.
type Report struct {
	Snapshots []flow.Snapshot
	Skipped   []Skip
	Top       *flow.Result
	Message   string
	Delivered bool
}

// New constructs the screening service. A nil notifier disables delivery and a
// nil locker disables replica coordination.
func New(cfg *config.Config, sched *scheduler.Scheduler, quotes fetcher.QuoteFetcher, notifier alerting.Notifier, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		quotes:    quotes,
		notifier:  notifier,
		watchlist: flow.Watchlist(),
		logger:    logger.With().Str("component", "service").Logger(),
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the scheduled cycle loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle runs one scheduled cycle. Once started, the cycle ignores
// cancellation of ctx; each fetch and the delivery are bounded by their own
// transport timeouts. The only error returned is a failure to consult the lock.
func (s *Service) ProcessCycle(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	log := s.logger.With().Str("cycle_id", uuid.NewString()).Time("tick", tick).Logger()
	s.runCycle(context.WithoutCancel(ctx), log, tick)
	return nil
}

// RunCycle makes one pass over the watchlist, then delivers at most one alert.
func (s *Service) RunCycle(ctx context.Context) Report {
	return s.runCycle(ctx, s.logger, time.Now().UTC())
}

func (s *Service) runCycle(ctx context.Context, log zerolog.Logger, tick time.Time) Report {
	var (
		report  Report
		tracker flow.Tracker
	)

	log.Info().Int("symbols", len(s.watchlist)).Msg("fetching tickers")

	for _, symbol := range s.watchlist {
		snap, err := s.sample(ctx, symbol)
		if err != nil {
			report.Skipped = append(report.Skipped, Skip{Symbol: symbol, Err: err})
			logSkip(log, symbol, err)
			continue
		}

		log.Info().
			Str("symbol", snap.Ticker).
			Float64("price", snap.Price).
			Float64("volume", snap.Volume).
			Float64("rvol", snap.RelativeVolume).
			Float64("change_pct", snap.PercentChange).
			Float64("flow", snap.FlowScore).
			Msg("symbol sampled")

		report.Snapshots = append(report.Snapshots, snap)
		tracker.Observe(snap)
	}

	res, ok := tracker.Best()
	if !ok {
		log.Info().Int("skipped", len(report.Skipped)).Msg("no usable samples; no alert this cycle")
		return report
	}

	report.Top = &res
	report.Message = alerting.RenderMessage(res)

	log.Info().
		Str("ticker", res.Ticker).
		Str("direction", res.Direction.String()).
		Float64("price", res.Price).
		Float64("change_pct", res.PercentChange).
		Float64("volume", res.Volume).
		Float64("rvol", res.RelativeVolume).
		Float64("flow", res.FlowScore).
		Msg(res.Direction.Label())

	if s.notifier == nil {
		log.Debug().Msg("delivery disabled; alert not sent")
		return report
	}

	note := alerting.Notification{Tick: tick, Result: res, Message: report.Message}
	if err := s.notifier.Notify(ctx, note); err != nil {
		log.Error().Err(err).Str("ticker", res.Ticker).Msg("failed to dispatch alert")
		return report
	}
	report.Delivered = true
	return report
}

func (s *Service) sample(ctx context.Context, symbol string) (flow.Snapshot, error) {
	body, err := s.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return flow.Snapshot{}, fmt.Errorf("fetch quote: %w", err)
	}
	if body == "" {
		return flow.Snapshot{}, fmt.Errorf("fetch quote: %w", fetcher.ErrEmptyResponse)
	}

	sample, err := quote.ParseSample(body)
	if err != nil {
		return flow.Snapshot{}, err
	}
	return flow.NewSnapshot(symbol, sample), nil
}

func logSkip(log zerolog.Logger, symbol string, err error) {
	event := log.Warn()
	if errors.Is(err, quote.ErrNoAverageVolume) {
		event = log.Debug()
	}
	event.Err(err).Str("symbol", symbol).Msg("symbol skipped")
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
