package app

import (
	"context"
	"errors"
	"time"

	"topflow/internal/alerting"
	"topflow/internal/flow"
)

// SimulateOptions describe a synthetic winner.
type SimulateOptions struct {
	Ticker         string
	Price          float64
	PercentChange  float64
	Volume         float64
	RelativeVolume float64
}

// SimulateAlert renders and delivers one alert for a synthetic winner.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if err := a.Config.ValidateDelivery(); err != nil {
		return err
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert destination configured")
	}

	res, _ := flow.Select([]flow.Snapshot{{
		Ticker:         opts.Ticker,
		Price:          opts.Price,
		PercentChange:  opts.PercentChange,
		Volume:         opts.Volume,
		RelativeVolume: opts.RelativeVolume,
		FlowScore:      opts.PercentChange * opts.RelativeVolume,
	}})

	note := alerting.Notification{
		Tick:    time.Now().UTC(),
		Result:  res,
		Message: alerting.RenderMessage(res),
	}
	if err := notifier.Notify(ctx, note); err != nil {
		return err
	}

	a.Logger.Info().Str("ticker", res.Ticker).Str("direction", res.Direction.String()).Msg("simulated alert delivered")
	return nil
}
