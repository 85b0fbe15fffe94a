package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gymaccess/internal/member"
)

// Columns shared by import and export.
var Columns = []string{
	"first_name",
	"last_name",
	"email",
	"phone",
	"subscription_start",
	"subscription_end",
	"medical_certificate_start",
	"medical_certificate_end",
	"payment_type",
	"receipt_number",
	"registration_fee_paid_until",
}

// Registry is the subset of member.Registry the roster commands need.
type Registry interface {
	FindByEmail(ctx context.Context, email string) (*member.Member, error)
	FindByName(ctx context.Context, first, last string) (*member.Member, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	Create(ctx context.Context, m *member.Member) error
	Update(ctx context.Context, m *member.Member) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter member.ListFilter) ([]member.Member, error)
}

// Options controls how a CSV file is read.
type Options struct {
	Delimiter rune
	DryRun    bool
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// RowResult describes what happened to one data row. Line counts the header as 1.
type RowResult struct {
	Line    int    `json:"line"`
	Name    string `json:"name"`
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// Row actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionSkipped  = "skipped"
	ActionNotFound = "not_found"
)

type table struct {
	reader *csv.Reader
	index  map[string]int
	line   int
}

// openTable reads the header, normalizing names, and checks required columns.
func openTable(r io.Reader, delim rune, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", member.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing required columns: %s", member.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return &table{reader: cr, index: index, line: 1}, nil
}

type row struct {
	line   int
	fields []string
	index  map[string]int
}

func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// next returns the next row; io.EOF ends the table. A malformed line is
// returned with its error so the caller can skip it and continue.
func (t *table) next() (row, error) {
	fields, err := t.reader.Read()
	t.line++
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return row{line: t.line}, err
		}
		return row{}, err
	}
	return row{line: t.line, fields: fields, index: t.index}, nil
}

func isRowErr(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr)
}
