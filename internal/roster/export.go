package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"gymaccess/internal/member"
)

// exportPage is the listing page size used while streaming an export.
const exportPage = 500

// Export writes every member as CSV in last-name order, using the import columns.
func Export(ctx context.Context, reg Registry, w io.Writer, delim rune) (int, error) {
	if delim == 0 {
		delim = ','
	}
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(Columns); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportPage {
		page, err := reg.List(ctx, member.ListFilter{Limit: exportPage, Offset: offset})
		if err != nil {
			return written, fmt.Errorf("list members: %w", err)
		}
		for _, m := range page {
			if err := cw.Write(record(m)); err != nil {
				return written, err
			}
			written++
		}
		if len(page) < exportPage {
			break
		}
	}
	cw.Flush()
	return written, cw.Error()
}

func record(m member.Member) []string {
	return []string{
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		FormatDate(m.SubscriptionStart),
		FormatDate(m.SubscriptionEnd),
		FormatDate(m.MedicalCertificateStart),
		FormatDate(m.MedicalCertificateEnd),
		m.PaymentType,
		m.ReceiptNumber,
		FormatDate(m.RegistrationFeePaidUntil),
	}
}
