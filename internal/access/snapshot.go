package access

import (
	"time"

	"gymaccess/internal/member"
)

// Snapshot is the validity view handed to admin screens and to external
// collaborators (card rendering, email dispatch, wallet passes).
type Snapshot struct {
	Token                    string            `json:"token"`
	FullName                 string            `json:"full_name"`
	Email                    string            `json:"email"`
	SubscriptionActive       bool              `json:"subscription_active"`
	SubscriptionEnd          *time.Time        `json:"subscription_end,omitempty"`
	DaysRemaining            int               `json:"days_remaining"`
	CertificateStatus        CertificateStatus `json:"certificate_status"`
	CertificateEnd           *time.Time        `json:"certificate_end,omitempty"`
	CertificateDaysRemaining int               `json:"certificate_days_remaining"`
	CanAccess                bool              `json:"can_access"`
	EvaluatedAt              time.Time         `json:"evaluated_at"`
}

// Evaluate computes a member's validity snapshot at now.
func Evaluate(m member.Member, now time.Time) Snapshot {
	return Snapshot{
		Token:                    m.Token,
		FullName:                 m.FullName(),
		Email:                    m.Email,
		SubscriptionActive:       SubscriptionActive(m, now),
		SubscriptionEnd:          m.SubscriptionEnd,
		DaysRemaining:            DaysRemaining(m, now),
		CertificateStatus:        Certificate(m, now),
		CertificateEnd:           m.MedicalCertificateEnd,
		CertificateDaysRemaining: CertificateDaysRemaining(m, now),
		CanAccess:                CanAccess(m, now),
		EvaluatedAt:              now,
	}
}
