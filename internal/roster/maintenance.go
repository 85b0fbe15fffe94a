package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gymaccess/internal/member"
)

// UpdatePlaceholderEmails replaces generated emails with real ones from a CSV
// of first_name, last_name, email. Members that already have a real address
// are left alone.
func UpdatePlaceholderEmails(ctx context.Context, reg Registry, r io.Reader, opts Options) (*Report, error) {
	return eachRow(ctx, r, opts, []string{"email", "first_name", "last_name"}, func(rw row, res *RowResult) {
		email := member.NormalizeEmail(rw.get("email"))
		if email == "" {
			res.Action, res.Message = ActionSkipped, "email required"
			return
		}
		m, err := reg.FindByName(ctx, rw.get("first_name"), rw.get("last_name"))
		if errors.Is(err, member.ErrNotFound) {
			res.Action = ActionNotFound
			return
		}
		if err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
			return
		}
		if !m.HasPlaceholderEmail() {
			res.Action, res.Message = ActionSkipped, "member already has an email"
			return
		}
		taken, err := reg.EmailTaken(ctx, email, m.ID)
		if err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
			return
		}
		if taken {
			res.Action, res.Message = ActionSkipped, fmt.Sprintf("email %s already in use", email)
			return
		}
		res.Action = ActionUpdated
		if opts.DryRun {
			return
		}
		m.Email = email
		if err := reg.Update(ctx, m); err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
		}
	})
}

// DeleteListed removes the members named in a CSV of first_name, last_name.
// Ambiguous names are skipped rather than guessed.
func DeleteListed(ctx context.Context, reg Registry, r io.Reader, opts Options) (*Report, error) {
	return eachRow(ctx, r, opts, []string{"first_name", "last_name"}, func(rw row, res *RowResult) {
		m, err := reg.FindByName(ctx, rw.get("first_name"), rw.get("last_name"))
		if errors.Is(err, member.ErrNotFound) {
			res.Action = ActionNotFound
			return
		}
		if err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
			return
		}
		res.Action = ActionDeleted
		if opts.DryRun {
			return
		}
		if err := reg.Delete(ctx, m.ID); err != nil {
			res.Action, res.Message = ActionSkipped, err.Error()
		}
	})
}

func eachRow(ctx context.Context, r io.Reader, opts Options, required []string, fn func(row, *RowResult)) (*Report, error) {
	tbl, err := openTable(r, opts.delimiter(), required...)
	if err != nil {
		return nil, err
	}
	report := &Report{DryRun: opts.DryRun}
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rw, err := tbl.next()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if isRowErr(err) {
			report.add(RowResult{Line: rw.line, Action: ActionSkipped, Message: err.Error()})
			continue
		}
		if err != nil {
			return report, fmt.Errorf("read csv: %w", err)
		}
		res := RowResult{Line: rw.line, Name: strings.TrimSpace(rw.get("first_name") + " " + rw.get("last_name"))}
		if rw.get("first_name") == "" || rw.get("last_name") == "" {
			res.Action, res.Message = ActionSkipped, "first and last name required"
		} else {
			fn(rw, &res)
		}
		report.add(res)
	}
}
