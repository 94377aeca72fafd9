package cron

import (
	"context"
	"fmt"

	"github.com/attos/attos-backend/pkg/logger"
)

// StageWatchdogJobName identifies the watchdog in logs and metrics.
const StageWatchdogJobName = "stage-watchdog"

type stageTicker interface {
	Tick(ctx context.Context) int
}

type stageWatchdogJob struct {
	logg   *logger.Logger
	ticker stageTicker
}

// NewStageWatchdogJob rearms stage timers that went missing. Safe to run at any cadence.
func NewStageWatchdogJob(logg *logger.Logger, ticker stageTicker) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ticker == nil {
		return nil, fmt.Errorf("order lifecycle manager required")
	}
	return &stageWatchdogJob{logg: logg, ticker: ticker}, nil
}

func (j *stageWatchdogJob) Name() string { return StageWatchdogJobName }

func (j *stageWatchdogJob) Run(ctx context.Context) error {
	armed := j.ticker.Tick(ctx)
	j.logg.Debug(j.logg.WithField(ctx, "armed", armed), "stage watchdog swept orders")
	return nil
}
