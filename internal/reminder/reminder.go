// Package reminder runs a periodic check for employees whose salary has not
// been paid for the current month and notifies their managers.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type Scheduler struct {
	repo     store.Repository
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
}

func New(repo store.Repository, interval time.Duration) *Scheduler {
	if interval < time.Minute {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		repo:     repo,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithClock overrides the scheduler's clock. Intended for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.CheckOnce(context.Background()); err != nil {
					log.Printf("[reminder] WARN: salary reminder check failed: %v", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// CheckOnce notifies the manager of every employee still unpaid for the
// month of the scheduler's current time. Repeated runs within one month
// produce repeated notifications; managers mark them read.
func (s *Scheduler) CheckOnce(ctx context.Context) error {
	month := s.now().Format("2006-01")
	unpaid, err := s.repo.ListUnpaidEmployees(ctx, month)
	if err != nil {
		return err
	}

	for _, emp := range unpaid {
		err := s.repo.CreateNotification(ctx, domain.Notification{
			ID:          xid.New("ntf"),
			RecipientID: emp.ManagerID,
			Kind:        domain.NotificationSalaryReminder,
			Message:     fmt.Sprintf("salary for %s not yet paid for %s", emp.Name, month),
			CreatedAt:   s.now(),
		})
		if err != nil {
			log.Printf("[reminder] WARN: failed to notify manager=%s employee=%s: %v", emp.ManagerID, emp.ID, err)
		}
	}

	if len(unpaid) > 0 {
		log.Printf("[reminder] %d unpaid employees for %s", len(unpaid), month)
	}
	return nil
}
