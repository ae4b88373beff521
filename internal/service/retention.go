package service

import (
	"log"
	"time"

	"droply/internal/domain"
	"droply/internal/repository"

	"github.com/go-co-op/gocron/v2"
)

// StartRetentionScheduler runs the hourly purge of expired audit rows: withdraw
// and claim logs past the log retention window, code-claim rows past the claim
// retention window. Returns the scheduler so the caller can shut it down.
func StartRetentionScheduler(auditRepo *repository.AuditRepository) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			now := time.Now()
			n, err := auditRepo.PurgeOlderThan(
				now.Add(-domain.LogRetention),
				now.Add(-domain.ClaimRetention),
			)
			if err != nil {
				log.Printf("[retention] purge failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[retention] purged %d expired rows", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
