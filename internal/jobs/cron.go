/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/Proshanto08/Team-management/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type runner interface {
	RunJob(ctx context.Context, name string) (services.RunResult, error)
}

type locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (repo.Unlock, bool, error)
}

// ErrStopped is returned by Trigger once Stop has been called.
var ErrStopped = errors.New("scheduler stopped")

// lockBase offsets the per-job advisory lock keys.
const lockBase int64 = 424242

const defaultJobTimeout = 10 * time.Minute

type Cron struct {
	cfg   config.Config
	log   zerolog.Logger
	svc   runner
	locks locker
	c     *cron.Cron
	keys  map[string]int64

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewCron registers one entry per job in the configured time zone.
func NewCron(cfg config.Config, log zerolog.Logger, svc runner, locks locker) (*Cron, error) {
	c := cron.New(cron.WithLocation(cfg.Location()), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, locks: locks, c: c, keys: map[string]int64{}}
	specs := map[string]string{
		services.JobNotDoneWindow: cfg.CronNotDoneWindow,
		services.JobNotDoneToday:  cfg.CronNotDoneToday,
		services.JobDoneWindow:    cfg.CronDoneWindow,
		services.JobDoneToday:     cfg.CronDoneToday,
		services.JobScore:         cfg.CronScore,
	}
	for i, j := range services.Jobs {
		name := j.Name
		cr.keys[name] = lockBase + int64(i)
		spec := specs[name]
		if spec == "" {
			log.Warn().Str("job", name).Msg("cron: no schedule, job disabled")
			continue
		}
		if _, err := c.AddFunc(spec, func() { cr.run(name) }); err != nil {
			return nil, fmt.Errorf("cron %s %q: %w", name, spec, err)
		}
		log.Info().Str("job", name).Str("spec", spec).Msg("cron: scheduled")
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts scheduling and waits for scheduled and triggered runs to return.
func (cr *Cron) Stop() {
	cr.mu.Lock()
	cr.stopped = true
	cr.mu.Unlock()
	<-cr.c.Stop().Done()
	cr.wg.Wait()
}

// Trigger starts an on-demand run of name under the same lock and timeout
// as a scheduled tick. It does not wait for the run.
func (cr *Cron) Trigger(name string) error {
	if _, ok := cr.keys[name]; !ok {
		return fmt.Errorf("%s: %w", name, services.ErrUnknownJob)
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.stopped {
		return ErrStopped
	}
	cr.wg.Add(1)
	go func() {
		defer cr.wg.Done()
		cr.run(name)
	}()
	return nil
}

func (cr *Cron) Len() int { return len(cr.c.Entries()) }

func (cr *Cron) run(name string) {
	timeout := cr.cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	key := cr.keys[name]
	unlock, ok, err := cr.locks.TryAdvisoryLock(ctx, key)
	if err != nil {
		cr.log.Error().Err(err).Str("job", name).Msg("cron: lock error")
		return
	}
	if !ok {
		cr.log.Info().Str("job", name).Msg("cron: already running elsewhere")
		return
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			cr.log.Error().Err(err).Str("job", name).Msg("cron: unlock error")
		}
	}()
	if _, err := cr.svc.RunJob(ctx, name); err != nil {
		cr.log.Error().Err(err).Str("job", name).Msg("cron: job failed")
	}
}
