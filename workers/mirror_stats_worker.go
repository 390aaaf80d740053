// workers/mirror_stats_worker.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"identity-sync-service/metrics"
	"identity-sync-service/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// MirrorStatsWorker periodically publishes the size of the local user and
// wallet mirror as Prometheus gauges.
type MirrorStatsWorker struct {
	Wallets  *services.WalletService
	Interval time.Duration

	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

func NewMirrorStatsWorker(wallets *services.WalletService, interval time.Duration) *MirrorStatsWorker {
	return &MirrorStatsWorker{
		Wallets:  wallets,
		Interval: interval,
	}
}

// Refresh counts users and wallets once and updates the gauges.
func (w *MirrorStatsWorker) Refresh(ctx context.Context) error {
	users, wallets, err := w.Wallets.MirrorCounts(ctx)
	if err != nil {
		return err
	}
	metrics.SetMirrorCounts(users, wallets)
	log.Debug().Int64("users", users).Int64("wallets", wallets).Msg("[MirrorStats] refreshed")
	return nil
}

// Start schedules Refresh every Interval, running it once right away. The
// job stops when ctx is cancelled or Stop is called.
func (w *MirrorStatsWorker) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		return errors.New("mirror stats interval must be positive")
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, w.Interval)
			defer cancel()
			if err := w.Refresh(jobCtx); err != nil {
				log.Error().Err(err).Msg("❌ [MirrorStats] refresh failed")
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule mirror stats job: %w", err)
	}

	w.scheduler = sched
	sched.Start()
	log.Info().Dur("interval", w.Interval).Msg("✅ [MirrorStats] worker started")

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()

	return nil
}

// Stop shuts the scheduler down. Calling it more than once is safe.
func (w *MirrorStatsWorker) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	w.stopOnce.Do(func() {
		w.stopErr = w.scheduler.Shutdown()
		if errors.Is(w.stopErr, gocron.ErrStopSchedulerTimedOut) {
			log.Warn().Msg("[MirrorStats] scheduler shutdown timed out")
		} else {
			log.Info().Msg("[MirrorStats] worker stopped")
		}
	})
	return w.stopErr
}
