// Package worker handles queued domain events and the scheduled jobs: card
// dispatch for new members, expiry reminders and the stale-session report.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"gymaccess/internal/access"
	"gymaccess/internal/attendance"
	"gymaccess/internal/member"
	"gymaccess/internal/metrics"
	"gymaccess/internal/notify"
	"gymaccess/internal/queue"
)

// Notifier is the card/email service.
type Notifier interface {
	SendCard(ctx context.Context, snap access.Snapshot) (*notify.DispatchResult, error)
	SendReminder(ctx context.Context, r notify.Reminder) (*notify.DispatchResult, error)
}

// Members is the part of the registry the worker reads.
type Members interface {
	FindByID(ctx context.Context, id int64) (*member.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]member.Member, error)
}

// Sessions reports open visits past the freshness window.
type Sessions interface {
	StaleSessions(ctx context.Context, now time.Time) ([]attendance.Record, error)
}

// Processor runs the worker jobs.
type Processor struct {
	members      Members
	sessions     Sessions
	notifier     Notifier
	reminderDays int
	loc          *time.Location
	now          func() time.Time
}

func New(members Members, sessions Sessions, notifier Notifier, reminderDays int, loc *time.Location) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{
		members:      members,
		sessions:     sessions,
		notifier:     notifier,
		reminderDays: reminderDays,
		loc:          loc,
		now:          time.Now,
	}
}

func (p *Processor) clock() time.Time {
	return p.now().In(p.loc)
}

// Handle processes one queued message. Unknown types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.TypeMemberCreated:
		var evt queue.MemberCreated
		if err := msg.Decode(&evt); err != nil {
			return err
		}
		return p.sendCard(ctx, evt.MemberID)
	case queue.TypeScan:
		var evt queue.Scan
		if err := msg.Decode(&evt); err != nil {
			return err
		}
		log.Printf("scan: member=%d station=%s action=%s outcome=%s", evt.MemberID, evt.Station, evt.Action, evt.Outcome)
		return nil
	default:
		return nil
	}
}

func (p *Processor) sendCard(ctx context.Context, memberID int64) error {
	m, err := p.members.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("load member %d: %w", memberID, err)
	}
	res, err := p.notifier.SendCard(ctx, access.Evaluate(*m, p.clock()))
	if err != nil {
		metrics.NotifyFailures.WithLabelValues("card").Inc()
		return fmt.Errorf("send card to member %d: %w", memberID, err)
	}
	log.Printf("card for member %d dispatched: %s (%s)", memberID, res.ID, res.Status)
	return nil
}

const listPage = 500

// SendReminders warns members whose subscription or medical certificate ends
// exactly reminderDays from today. Run daily, each expiry is announced once.
func (p *Processor) SendReminders(ctx context.Context) (int, error) {
	if p.reminderDays <= 0 {
		return 0, nil
	}
	now := p.clock()
	sent := 0
	for offset := 0; ; offset += listPage {
		page, err := p.members.List(ctx, member.ListFilter{Limit: listPage, Offset: offset})
		if err != nil {
			return sent, fmt.Errorf("list members: %w", err)
		}
		for _, m := range page {
			for _, r := range p.due(m, now) {
				if _, err := p.notifier.SendReminder(ctx, r); err != nil {
					metrics.NotifyFailures.WithLabelValues("reminder").Inc()
					log.Printf("reminder %s for member %d failed: %v", r.Kind, m.ID, err)
					continue
				}
				sent++
			}
		}
		if len(page) < listPage {
			return sent, nil
		}
	}
}

func (p *Processor) due(m member.Member, now time.Time) []notify.Reminder {
	var out []notify.Reminder
	snap := access.Evaluate(m, now)
	if snap.SubscriptionActive && snap.DaysRemaining == p.reminderDays {
		out = append(out, notify.Reminder{Kind: notify.ReminderSubscription, Snapshot: snap, ExpiresOn: *m.SubscriptionEnd})
	}
	if snap.CertificateStatus == access.CertActive && snap.CertificateDaysRemaining == p.reminderDays {
		out = append(out, notify.Reminder{Kind: notify.ReminderCertificate, Snapshot: snap, ExpiresOn: *m.MedicalCertificateEnd})
	}
	return out
}

// ReportStale updates the stale-session gauge and logs each stale visit.
// Stale visits are left open for staff to resolve.
func (p *Processor) ReportStale(ctx context.Context) (int, error) {
	now := p.clock()
	stale, err := p.sessions.StaleSessions(ctx, now)
	if err != nil {
		return 0, err
	}
	metrics.StaleSessions.Set(float64(len(stale)))
	for _, rec := range stale {
		log.Printf("stale session: record=%d member=%d open since %s", rec.ID, rec.MemberID, rec.CheckIn.In(p.loc).Format(time.RFC3339))
	}
	return len(stale), nil
}
