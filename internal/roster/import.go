package roster

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"gymaccess/internal/member"
)

// ImportOptions configures Import.
type ImportOptions struct {
	Options
	// Today anchors the default subscription period for rows without one.
	Today time.Time
}

// Report summarizes a bulk operation over a CSV file.
type Report struct {
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Deleted  int         `json:"deleted"`
	NotFound int         `json:"not_found"`
	Skipped  int         `json:"skipped"`
	DryRun   bool        `json:"dry_run"`
	Rows     []RowResult `json:"rows"`
}

func (r *Report) add(res RowResult) {
	switch res.Action {
	case ActionCreated:
		r.Created++
	case ActionUpdated:
		r.Updated++
	case ActionDeleted:
		r.Deleted++
	case ActionNotFound:
		r.NotFound++
	default:
		r.Skipped++
	}
	r.Rows = append(r.Rows, res)
}

var paymentAliases = map[string]string{
	"card":        member.PaymentCard,
	"carta":       member.PaymentCard,
	"credit card": member.PaymentCard,
	"pos":         member.PaymentCard,
	"cash":        member.PaymentCash,
	"contanti":    member.PaymentCash,
}

// ParsePayment maps free-form payment labels onto the accepted values.
func ParsePayment(value string) string {
	if p, ok := paymentAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return p
	}
	return member.PaymentUnspecified
}

// Import creates or updates members from a roster CSV. Rows are matched by
// email first, then by exact first and last name. A missing header column
// aborts the import; bad rows are skipped and reported.
func Import(ctx context.Context, reg Registry, r io.Reader, opts ImportOptions) (*Report, error) {
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = member.Date(today)
	return eachRow(ctx, r, opts.Options, []string{"first_name", "last_name"}, func(rw row, res *RowResult) {
		*res = importRow(ctx, reg, rw, today, opts.DryRun)
	})
}

func importRow(ctx context.Context, reg Registry, rw row, today time.Time, dryRun bool) RowResult {
	first, last := rw.get("first_name"), rw.get("last_name")
	res := RowResult{Line: rw.line, Name: strings.TrimSpace(first + " " + last)}

	existing, err := match(ctx, reg, rw.get("email"), first, last)
	if err != nil {
		res.Action, res.Message = ActionSkipped, err.Error()
		return res
	}

	start := ParseDate(rw.get("subscription_start"))
	if start == nil {
		start = &today
	}
	end := ParseDate(rw.get("subscription_end"))
	if end == nil {
		e := AddMonth(*start)
		end = &e
	}

	m := &member.Member{}
	if existing != nil {
		*m = *existing
	}
	m.FirstName = first
	m.LastName = last
	m.Phone = rw.get("phone")
	m.SubscriptionStart = start
	m.SubscriptionEnd = end
	m.MedicalCertificateStart = ParseDate(rw.get("medical_certificate_start"))
	m.MedicalCertificateEnd = ParseDate(rw.get("medical_certificate_end"))
	m.PaymentType = ParsePayment(rw.get("payment_type"))
	m.ReceiptNumber = rw.get("receipt_number")
	m.RegistrationFeePaidUntil = ParseDate(rw.get("registration_fee_paid_until"))

	// an empty email cell never overwrites a stored address
	if email := member.NormalizeEmail(rw.get("email")); email != "" {
		m.Email = email
	} else if existing == nil {
		if m.Email, err = PlaceholderEmail(ctx, reg, first, last); err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
			return res
		}
	}

	if existing == nil {
		res.Action = ActionCreated
		if !dryRun {
			err = reg.Create(ctx, m)
		} else {
			err = member.Validate(m)
		}
	} else {
		res.Action = ActionUpdated
		if !dryRun {
			err = reg.Update(ctx, m)
		} else {
			err = member.Validate(m)
		}
	}
	if err != nil {
		res.Action, res.Message = ActionSkipped, err.Error()
	}
	return res
}

// match resolves an existing member by email, then by name. Not found is (nil, nil).
func match(ctx context.Context, reg Registry, email, first, last string) (*member.Member, error) {
	if email != "" {
		m, err := reg.FindByEmail(ctx, email)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, member.ErrNotFound) {
			return nil, err
		}
	}
	m, err := reg.FindByName(ctx, first, last)
	if errors.Is(err, member.ErrNotFound) {
		return nil, nil
	}
	return m, err
}
