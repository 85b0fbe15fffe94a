package attendance

import (
	"testing"
	"time"
)

func TestState(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour)

	tests := []struct {
		name     string
		checkOut *time.Time
		now      time.Time
		want     SessionState
	}{
		{name: "closed", checkOut: &out, now: in.Add(10 * time.Hour), want: SessionClosed},
		{name: "just opened", now: in, want: OpenSessionFresh},
		{name: "at threshold", now: in.Add(2 * time.Hour), want: OpenSessionFresh},
		{name: "past threshold", now: in.Add(2*time.Hour + time.Nanosecond), want: OpenSessionStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(in, tt.checkOut, tt.now, DefaultFreshness); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMemberStateWithoutRecord(t *testing.T) {
	if got := MemberState(nil, time.Now(), DefaultFreshness); got != NoOpenSession {
		t.Fatalf("expected no open session, got %s", got)
	}
}

func TestFormatDuration(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	open := Record{CheckIn: in}
	if got := open.FormatDuration(); got != "in progress" {
		t.Fatalf("expected in progress, got %q", got)
	}

	out := in.Add(95 * time.Minute)
	closed := Record{CheckIn: in, CheckOut: &out}
	if got := closed.FormatDuration(); got != "1.6 h" {
		t.Fatalf("expected 1.6 h, got %q", got)
	}
}

func TestStatusLabel(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := Record{CheckIn: in}
	if got := rec.StatusLabel(in.Add(time.Hour), DefaultFreshness); got != "active" {
		t.Fatalf("expected active, got %s", got)
	}
	if got := rec.StatusLabel(in.Add(3*time.Hour), DefaultFreshness); got != "expired" {
		t.Fatalf("expected expired, got %s", got)
	}
}
