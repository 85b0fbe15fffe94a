package attendance

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFreshness is how long an open visit counts as in progress.
const DefaultFreshness = 2 * time.Hour

// ErrAlreadyClosed is returned when closing a record that already has a check-out.
var ErrAlreadyClosed = errors.New("attendance record already closed")

// SubscriptionStatus snapshots subscription validity at check-in time.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Record is one visit attempt. CheckOut is set at most once.
type Record struct {
	ID                 int64              `json:"id"`
	MemberID           int64              `json:"member_id"`
	CheckIn            time.Time          `json:"check_in"`
	CheckOut           *time.Time         `json:"check_out,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}

// SessionState is derived from a record's timestamps, never stored.
type SessionState string

const (
	NoOpenSession    SessionState = "no_open_session"
	OpenSessionFresh SessionState = "open_fresh"
	OpenSessionStale SessionState = "open_stale"
	SessionClosed    SessionState = "closed"
)

// State classifies a single record at now.
func State(checkIn time.Time, checkOut *time.Time, now time.Time, freshness time.Duration) SessionState {
	if checkOut != nil {
		return SessionClosed
	}
	if now.Sub(checkIn) <= freshness {
		return OpenSessionFresh
	}
	return OpenSessionStale
}

// MemberState classifies a member from their most recent open record, or nil.
func MemberState(latestOpen *Record, now time.Time, freshness time.Duration) SessionState {
	if latestOpen == nil {
		return NoOpenSession
	}
	return latestOpen.State(now, freshness)
}

// State classifies the record at now.
func (r Record) State(now time.Time, freshness time.Duration) SessionState {
	return State(r.CheckIn, r.CheckOut, now, freshness)
}

// Duration returns check-out minus check-in, and false while the visit is open.
func (r Record) Duration() (time.Duration, bool) {
	if r.CheckOut == nil {
		return 0, false
	}
	return r.CheckOut.Sub(r.CheckIn), true
}

// FormatDuration renders the visit length in hours with one decimal.
func (r Record) FormatDuration() string {
	d, ok := r.Duration()
	if !ok {
		return "in progress"
	}
	return fmt.Sprintf("%.1f h", d.Hours())
}

// StatusLabel is "active" while the visit is open and fresh, "expired" otherwise.
func (r Record) StatusLabel(now time.Time, freshness time.Duration) string {
	if r.State(now, freshness) == OpenSessionFresh {
		return "active"
	}
	return "expired"
}

// Filter narrows record listings.
type Filter struct {
	MemberID int64
	Limit    int
	Offset   int
}
