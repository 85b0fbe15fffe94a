package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymaccess/internal/access"
	"gymaccess/internal/attendance"
	"gymaccess/internal/lock"
	"gymaccess/internal/member"
	"gymaccess/internal/notify"
	"gymaccess/internal/queue"
)

type fakeNotifier struct {
	cards     []access.Snapshot
	reminders []notify.Reminder
	err       error
}

func (f *fakeNotifier) SendCard(_ context.Context, snap access.Snapshot) (*notify.DispatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cards = append(f.cards, snap)
	return &notify.DispatchResult{ID: "c", Status: "queued"}, nil
}

func (f *fakeNotifier) SendReminder(_ context.Context, r notify.Reminder) (*notify.DispatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reminders = append(f.reminders, r)
	return &notify.DispatchResult{ID: "r", Status: "queued"}, nil
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type env struct {
	reg      *member.Registry
	ledger   *attendance.Service
	notifier *fakeNotifier
	proc     *Processor
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	reg := member.NewRegistry(member.NewMemoryRepository())
	ledger := attendance.NewService(reg, attendance.NewMemoryRepository(), lock.NewLocal(), 2*time.Hour)
	n := &fakeNotifier{}
	p := New(reg, ledger, n, 7, time.UTC)
	p.now = func() time.Time { return now }
	return &env{reg: reg, ledger: ledger, notifier: n, proc: p}
}

func (e *env) add(t *testing.T, email string, subEnd, certEnd *time.Time) *member.Member {
	t.Helper()
	m := &member.Member{
		FirstName:             "Mario",
		LastName:              "Rossi",
		Email:                 email,
		SubscriptionStart:     day(2025, 1, 1),
		SubscriptionEnd:       subEnd,
		MedicalCertificateEnd: certEnd,
	}
	if err := e.reg.Create(context.Background(), m); err != nil {
		t.Fatalf("create: %v", err)
	}
	return m
}

func TestHandleMemberCreatedSendsCard(t *testing.T) {
	e := newEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	m := e.add(t, "mario@example.com", day(2025, 12, 31), day(2025, 6, 30))

	msg, err := queue.NewMessage(queue.TypeMemberCreated, queue.MemberCreated{MemberID: m.ID, Token: m.Token})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if err := e.proc.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(e.notifier.cards) != 1 || e.notifier.cards[0].Token != m.Token || !e.notifier.cards[0].CanAccess {
		t.Fatalf("unexpected cards %+v", e.notifier.cards)
	}

	e.notifier.err = errors.New("down")
	if err := e.proc.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected notifier error")
	}

	missing, _ := queue.NewMessage(queue.TypeMemberCreated, queue.MemberCreated{MemberID: 999})
	if err := e.proc.Handle(context.Background(), missing); !errors.Is(err, member.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleIgnoresOtherTypes(t *testing.T) {
	e := newEnv(t, time.Now())
	scan, _ := queue.NewMessage(queue.TypeScan, queue.Scan{Action: "checkin", Outcome: "checked_in"})
	if err := e.proc.Handle(context.Background(), scan); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := e.proc.Handle(context.Background(), queue.Message{Type: "other"}); err != nil {
		t.Fatalf("other: %v", err)
	}
}

func TestSendReminders(t *testing.T) {
	e := newEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e.add(t, "sub@example.com", day(2025, 3, 17), day(2025, 12, 31))
	e.add(t, "cert@example.com", day(2025, 12, 31), day(2025, 3, 17))
	e.add(t, "both@example.com", day(2025, 3, 17), day(2025, 3, 17))
	e.add(t, "later@example.com", day(2025, 3, 18), day(2025, 3, 16))
	e.add(t, "nocert@example.com", day(2025, 3, 17), nil)

	n, err := e.proc.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 reminders, got %d: %+v", n, e.notifier.reminders)
	}
	kinds := map[string]int{}
	for _, r := range e.notifier.reminders {
		kinds[r.Kind]++
		if !r.ExpiresOn.Equal(*day(2025, 3, 17)) {
			t.Fatalf("unexpected expiry %v", r.ExpiresOn)
		}
	}
	if kinds[notify.ReminderSubscription] != 3 || kinds[notify.ReminderCertificate] != 2 {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestReportStale(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	e := newEnv(t, start.Add(3*time.Hour))
	m := e.add(t, "mario@example.com", day(2025, 12, 31), day(2025, 6, 30))
	if res, err := e.ledger.CheckIn(context.Background(), m.Token, start); err != nil || res.Outcome != attendance.OutcomeCheckedIn {
		t.Fatalf("check in: %+v %v", res, err)
	}

	n, err := e.proc.ReportStale(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one stale session, got %d %v", n, err)
	}
}

func TestSchedule(t *testing.T) {
	e := newEnv(t, time.Now())
	c := e.proc.NewCron()
	if err := e.proc.Schedule(context.Background(), c, "0 8 * * *", "@hourly"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(c.Entries()))
	}
	if err := e.proc.Schedule(context.Background(), e.proc.NewCron(), "not a schedule", ""); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}
