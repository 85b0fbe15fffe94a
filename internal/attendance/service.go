package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymaccess/internal/access"
	"gymaccess/internal/lock"
	"gymaccess/internal/member"
)

// ErrInvalidAction is returned for scan actions other than checkin/checkout.
var ErrInvalidAction = errors.New("invalid scan action")

// Action discriminates scan requests.
type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

// ParseAction validates a scan action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionCheckIn, ActionCheckOut:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Outcome is the decision of a check-in or check-out attempt.
type Outcome string

const (
	OutcomeMemberNotFound              Outcome = "member_not_found"
	OutcomeRejectedSubscriptionExpired Outcome = "rejected_subscription_expired"
	OutcomeRejectedCertificateExpired  Outcome = "rejected_certificate_expired"
	OutcomeAlreadyCheckedIn            Outcome = "already_checked_in"
	OutcomeCheckedIn                   Outcome = "checked_in"
	OutcomeNoActiveSessionToClose      Outcome = "no_active_session_to_close"
	OutcomeCheckedOut                  Outcome = "checked_out"
)

var outcomeMessages = map[Outcome]string{
	OutcomeMemberNotFound:              "Member not found.",
	OutcomeRejectedSubscriptionExpired: "Subscription expired: access denied.",
	OutcomeRejectedCertificateExpired:  "Medical certificate expired: access denied.",
	OutcomeAlreadyCheckedIn:            "You are already checked in.",
	OutcomeCheckedIn:                   "Check-in successful.",
	OutcomeNoActiveSessionToClose:      "You must check in before checking out.",
	OutcomeCheckedOut:                  "Check-out successful. See you soon!",
}

// Success reports whether the outcome lets the member through (or out).
func (o Outcome) Success() bool {
	switch o {
	case OutcomeAlreadyCheckedIn, OutcomeCheckedIn, OutcomeCheckedOut:
		return true
	}
	return false
}

// Message is the user-visible text for the outcome.
func (o Outcome) Message() string {
	return outcomeMessages[o]
}

// Result is what a scan station shows after an attempt.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Member  *member.Member `json:"member,omitempty"`
	Record  *Record        `json:"record,omitempty"`
}

func newResult(o Outcome, m *member.Member, rec *Record) Result {
	status := "error"
	if o.Success() {
		status = "success"
	}
	return Result{Outcome: o, Status: status, Message: o.Message(), Member: m, Record: rec}
}

// Repository persists attendance records.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	// LatestOpen returns the member's most recent record without check-out, or nil.
	LatestOpen(ctx context.Context, memberID int64) (*Record, error)
	// Close sets check-out on a still-open record; ErrAlreadyClosed otherwise.
	Close(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter Filter) ([]Record, error)
	Open(ctx context.Context) ([]Record, error)
}

// MemberLookup resolves scanned tokens.
type MemberLookup interface {
	FindByToken(ctx context.Context, token string) (*member.Member, error)
}

// Service is the attendance ledger: it admits, refuses and closes visits.
type Service struct {
	members   MemberLookup
	repo      Repository
	locker    lock.Locker
	freshness time.Duration
}

// NewService creates a ledger. Non-positive freshness falls back to two hours.
func NewService(members MemberLookup, repo Repository, locker lock.Locker, freshness time.Duration) *Service {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{members: members, repo: repo, locker: locker, freshness: freshness}
}

// Freshness returns the open-session freshness window.
func (s *Service) Freshness() time.Duration {
	return s.freshness
}

// Scan dispatches a scanned token to check-in or check-out.
func (s *Service) Scan(ctx context.Context, token string, action Action, now time.Time) (Result, error) {
	switch action {
	case ActionCheckIn:
		return s.CheckIn(ctx, token, now)
	case ActionCheckOut:
		return s.CheckOut(ctx, token, now)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// CheckIn admits a member. Failed admissions are recorded too, as an audit trail.
// Subscription is checked before the certificate, and an open fresh visit
// makes the call a no-op.
func (s *Service) CheckIn(ctx context.Context, token string, now time.Time) (Result, error) {
	m, unlock, err := s.acquire(ctx, token)
	if err != nil {
		return Result{}, err
	}
	if m == nil {
		return newResult(OutcomeMemberNotFound, nil, nil), nil
	}
	defer unlock()

	if !access.SubscriptionActive(*m, now) {
		rec, err := s.insert(ctx, m.ID, now, SubscriptionExpired)
		if err != nil {
			return Result{}, err
		}
		return newResult(OutcomeRejectedSubscriptionExpired, m, rec), nil
	}
	if !access.CertificateActive(*m, now) {
		rec, err := s.insert(ctx, m.ID, now, SubscriptionActive)
		if err != nil {
			return Result{}, err
		}
		return newResult(OutcomeRejectedCertificateExpired, m, rec), nil
	}

	open, err := s.repo.LatestOpen(ctx, m.ID)
	if err != nil {
		return Result{}, fmt.Errorf("latest open record: %w", err)
	}
	if MemberState(open, now, s.freshness) == OpenSessionFresh {
		return newResult(OutcomeAlreadyCheckedIn, m, open), nil
	}

	// A stale open record stays as it is; it is reported by StaleSessions.
	rec, err := s.insert(ctx, m.ID, now, SubscriptionActive)
	if err != nil {
		return Result{}, err
	}
	return newResult(OutcomeCheckedIn, m, rec), nil
}

// CheckOut closes the member's fresh open visit, if any.
func (s *Service) CheckOut(ctx context.Context, token string, now time.Time) (Result, error) {
	m, unlock, err := s.acquire(ctx, token)
	if err != nil {
		return Result{}, err
	}
	if m == nil {
		return newResult(OutcomeMemberNotFound, nil, nil), nil
	}
	defer unlock()

	open, err := s.repo.LatestOpen(ctx, m.ID)
	if err != nil {
		return Result{}, fmt.Errorf("latest open record: %w", err)
	}
	if MemberState(open, now, s.freshness) != OpenSessionFresh {
		return newResult(OutcomeNoActiveSessionToClose, m, nil), nil
	}

	if err := s.repo.Close(ctx, open.ID, now); err != nil {
		if errors.Is(err, ErrAlreadyClosed) {
			return newResult(OutcomeNoActiveSessionToClose, m, nil), nil
		}
		return Result{}, fmt.Errorf("close record %d: %w", open.ID, err)
	}
	closedAt := now
	open.CheckOut = &closedAt
	return newResult(OutcomeCheckedOut, m, open), nil
}

// History lists a member's records, newest first.
func (s *Service) History(ctx context.Context, memberID int64, limit int) ([]Record, error) {
	return s.repo.List(ctx, Filter{MemberID: memberID, Limit: limit})
}

// List lists records, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Record, error) {
	return s.repo.List(ctx, filter)
}

// StaleSessions returns open records older than the freshness window. They are
// never closed automatically.
func (s *Service) StaleSessions(ctx context.Context, now time.Time) ([]Record, error) {
	open, err := s.repo.Open(ctx)
	if err != nil {
		return nil, err
	}
	stale := make([]Record, 0, len(open))
	for _, rec := range open {
		if rec.State(now, s.freshness) == OpenSessionStale {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

// acquire resolves the member and locks their token. A nil member with a nil
// error means the token is unknown.
func (s *Service) acquire(ctx context.Context, token string) (*member.Member, func(), error) {
	m, err := s.members.FindByToken(ctx, token)
	if errors.Is(err, member.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	unlock, err := s.locker.Lock(ctx, m.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("lock member %d: %w", m.ID, err)
	}
	return m, unlock, nil
}

func (s *Service) insert(ctx context.Context, memberID int64, now time.Time, status SubscriptionStatus) (*Record, error) {
	rec := &Record{MemberID: memberID, CheckIn: now, SubscriptionStatus: status}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}
