package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// NewCron builds a scheduler that fires in the processor's timezone.
func (p *Processor) NewCron() *cron.Cron {
	return cron.New(cron.WithLocation(p.loc))
}

// Schedule registers the reminder and stale-session jobs. An empty schedule
// disables that job.
func (p *Processor) Schedule(ctx context.Context, c *cron.Cron, reminderSchedule, staleSchedule string) error {
	if reminderSchedule != "" {
		if _, err := c.AddFunc(reminderSchedule, func() {
			n, err := p.SendReminders(ctx)
			if err != nil {
				log.Printf("reminders failed after %d sent: %v", n, err)
				return
			}
			log.Printf("reminders sent: %d", n)
		}); err != nil {
			return fmt.Errorf("reminder schedule %q: %w", reminderSchedule, err)
		}
	}
	if staleSchedule != "" {
		if _, err := c.AddFunc(staleSchedule, func() {
			if _, err := p.ReportStale(ctx); err != nil {
				log.Printf("stale session report failed: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("stale report schedule %q: %w", staleSchedule, err)
		}
	}
	return nil
}
