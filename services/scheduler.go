// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

const (
	idempotencySweepInterval  = 10 * time.Minute
	idempotencySweepBatchSize = 500
)

// ExpiredRecordSweeper is implemented by idempotency stores that do not expire keys on their own.
type ExpiredRecordSweeper interface {
	CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error)
}

// StartMaintenanceScheduler runs housekeeping jobs until the scheduler is shut down.
// Gift state is never touched here: funding and expiry are discovered on request.
func StartMaintenanceScheduler(sweeper ExpiredRecordSweeper, timeout time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	logger := log.WithField("component", "SCHEDULER")

	// Every 10 minutes: drop expired idempotency records
	_, err = sched.NewJob(
		gocron.DurationJob(idempotencySweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			deleted, errSweep := sweeper.CleanupExpired(ctx, time.Now().UTC(), idempotencySweepBatchSize)
			if errSweep != nil {
				logger.WithError(errSweep).Warn("idempotency sweep failed")
				return
			}
			if deleted > 0 {
				logger.Infof("removed %d expired idempotency records", deleted)
			}
		}),
		gocron.WithName("idempotency-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
