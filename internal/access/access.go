// Package access derives a member's validity verdict from their subscription
// and medical-certificate windows. Every function is pure: the reference date
// is the calendar date of now in now's own location.
package access

import (
	"time"

	"gymaccess/internal/member"
)

// CertificateStatus describes the medical certificate of a member.
type CertificateStatus string

const (
	CertNotSpecified CertificateStatus = "not_specified"
	CertActive       CertificateStatus = "active"
	CertExpired      CertificateStatus = "expired"
)

// SubscriptionActive reports whether start <= today <= end. Both bounds are
// inclusive and both must be present.
func SubscriptionActive(m member.Member, now time.Time) bool {
	if m.SubscriptionStart == nil || m.SubscriptionEnd == nil {
		return false
	}
	today := member.Date(now)
	return !today.Before(member.Date(*m.SubscriptionStart)) && !today.After(member.Date(*m.SubscriptionEnd))
}

// DaysRemaining returns the whole days left until the subscription end, never negative.
func DaysRemaining(m member.Member, now time.Time) int {
	return daysUntil(m.SubscriptionEnd, now)
}

// CertificateActive reports whether the medical certificate end is present and
// not yet passed. The start date is deliberately ignored.
func CertificateActive(m member.Member, now time.Time) bool {
	if m.MedicalCertificateEnd == nil {
		return false
	}
	return !member.Date(now).After(member.Date(*m.MedicalCertificateEnd))
}

// CertificateDaysRemaining returns the whole days left on the medical certificate.
func CertificateDaysRemaining(m member.Member, now time.Time) int {
	return daysUntil(m.MedicalCertificateEnd, now)
}

// Certificate classifies the medical certificate.
func Certificate(m member.Member, now time.Time) CertificateStatus {
	if m.MedicalCertificateEnd == nil {
		return CertNotSpecified
	}
	if CertificateActive(m, now) {
		return CertActive
	}
	return CertExpired
}

// CanAccess is the admission predicate: subscription and certificate both valid.
func CanAccess(m member.Member, now time.Time) bool {
	return SubscriptionActive(m, now) && CertificateActive(m, now)
}

func daysUntil(end *time.Time, now time.Time) int {
	if end == nil {
		return 0
	}
	days := int(member.Date(*end).Sub(member.Date(now)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
