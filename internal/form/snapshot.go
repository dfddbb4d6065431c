package form

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "kycportal/pkg/domain-errors"
)

// Reader is read access to buffer values, used by derived computations.
type Reader interface {
	String(name string) string
	Rows(group string) []Row
}

// Snapshot is an immutable copy of a form buffer handed to submit handlers.
type Snapshot struct {
	Values  map[string]string
	Groups  map[string][]Row
	Derived map[string]string
}

func (s Snapshot) String(name string) string { return s.Values[name] }

func (s Snapshot) Rows(group string) []Row { return s.Groups[group] }

// Defaults converts the snapshot back into seed values.
func (s Snapshot) Defaults() Defaults {
	return Defaults{Values: s.Values, Groups: s.Groups}.clone()
}

// SumDecimal adds field over every row of group. Blank or non-numeric
// entries count as zero.
func SumDecimal(r Reader, group, field string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range r.Rows(group) {
		d, err := decimal.NewFromString(strings.TrimSpace(row.Values[field]))
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total
}

// ErrMinRows marks a refused row removal.
var ErrMinRows = errors.New("group is at its minimum row count")

// ValidationError carries per-field messages keyed by field path.
type ValidationError struct {
	Errors  map[string]string
	minRows bool
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrMinRows && e.minRows
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// FieldErrors exposes the messages to the HTTP error writer.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Errors
}

func (e *ValidationError) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, "validation failed")
}
