package member

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no member matches a lookup.
	ErrNotFound = errors.New("member not found")
	// ErrAmbiguousMatch is returned when a name lookup matches more than one member.
	ErrAmbiguousMatch = errors.New("multiple members match")
	// ErrDuplicateKey is returned when a write would duplicate an email or token.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidInput is returned for missing or malformed member fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Payment types accepted for the registration fee.
const (
	PaymentCard        = "card"
	PaymentCash        = "cash"
	PaymentUnspecified = "unspecified"
)

// PlaceholderDomain marks generated emails for members imported without one.
const PlaceholderDomain = "placeholder.local"

// Member is a gym member record. Date fields hold calendar dates at UTC midnight.
type Member struct {
	ID        int64  `json:"id"`
	Token     string `json:"token"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"omitempty,phone"`

	SubscriptionStart       *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd         *time.Time `json:"subscription_end,omitempty"`
	MedicalCertificateStart *time.Time `json:"medical_certificate_start,omitempty"`
	MedicalCertificateEnd   *time.Time `json:"medical_certificate_end,omitempty"`

	PaymentType              string     `json:"payment_type" validate:"omitempty,oneof=card cash unspecified"`
	ReceiptNumber            string     `json:"receipt_number" validate:"max=50"`
	RegistrationFeePaidUntil *time.Time `json:"registration_fee_paid_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "First Last".
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// HasPlaceholderEmail reports whether the email was generated at import time.
func (m Member) HasPlaceholderEmail() bool {
	return strings.HasSuffix(strings.ToLower(m.Email), "@"+PlaceholderDomain)
}

// Date truncates t to its calendar date, expressed at UTC midnight.
func Date(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date for optional values.
func DatePtr(t time.Time) *time.Time {
	d := Date(t)
	return &d
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListFilter narrows member listings.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}
