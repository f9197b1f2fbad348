package crontab

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mileusna/crontab"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/infrastructure/logger"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

const DefaultSweepTimeout = 10 * time.Minute

// SweepRunner is the part of the embedding sweeper the scheduler needs.
type SweepRunner interface {
	Sweep(ctx context.Context) (*embedding.SweepResult, error)
}

type Options struct {
	Enabled  bool
	Schedule string
	Timeout  time.Duration
}

type Crontab struct {
	ctab    *crontab.Crontab
	sweeper SweepRunner
	opts    Options
	running atomic.Bool
}

func NewCrontab(sweeper SweepRunner, opts Options) *Crontab {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSweepTimeout
	}
	return &Crontab{
		ctab:    crontab.New(),
		sweeper: sweeper,
		opts:    opts,
	}
}

// Run schedules the embedding sweep and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()

	if c.opts.Enabled {
		if err := c.ctab.AddJob(c.opts.Schedule, func() {
			jobCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			c.runSweep(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add embedding sweep job")
		}
		log.Info().Str("schedule", c.opts.Schedule).Msg("Embedding sweep scheduled")
	} else {
		log.Warn().Msg("Embedding sweep disabled")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// runSweep skips the tick when the previous run in this process has not finished yet.
func (c *Crontab) runSweep(ctx context.Context) {
	log := logger.GetLogger()
	if !c.running.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous embedding sweep still running, skipping tick")
		return
	}
	defer c.running.Store(false)

	if _, err := c.sweeper.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("Embedding sweep failed")
	}
}
