// Package form is a schema-driven edit buffer: scalar fields, repeatable row
// groups, declarative validation rules and derived values. Concrete forms
// (login, profile, KYC) only describe themselves with a Schema.
package form

import (
	"time"
)

// Kind tells the engine how to normalise and render a field value.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindDate
)

// Field describes one scalar input, top-level or inside a group row.
type Field struct {
	Name  string
	Kind  Kind
	Rules []Rule
}

// Group describes a repeatable, ordered set of rows sharing the same fields.
type Group struct {
	Name    string
	Fields  []Field
	MinRows int
	// Exclusive lists boolean fields that may be true on at most one row.
	Exclusive []string
	// IDPrefix is prepended to generated row ids ("email", "inc").
	IDPrefix string
	// MinRowsMessage is reported when a removal is refused.
	MinRowsMessage string
	// NewRow returns the defaults of a freshly appended row.
	NewRow func() map[string]string
}

// Derived computes a read-only value from the current buffer.
type Derived struct {
	Name    string
	Compute func(v Reader, now time.Time) string
}

// Schema is the full description of a form.
type Schema struct {
	Name    string
	Fields  []Field
	Groups  []Group
	Derived []Derived
	// RequireEditMode makes the buffer immutable until BeginEdit is called.
	RequireEditMode bool
}

func (s *Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) group(name string) (*Group, bool) {
	for i := range s.Groups {
		if s.Groups[i].Name == name {
			return &s.Groups[i], true
		}
	}
	return nil, false
}

func (g *Group) field(name string) (Field, bool) {
	for _, f := range g.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (g *Group) isExclusive(name string) bool {
	for _, e := range g.Exclusive {
		if e == name {
			return true
		}
	}
	return false
}

// Row is one group entry. ID is stable for the row's lifetime and never
// reused inside an edit session.
type Row struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

func (r Row) clone() Row {
	vals := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		vals[k] = v
	}
	return Row{ID: r.ID, Values: vals}
}

// Defaults seeds a buffer. Group rows without an id get a generated one.
type Defaults struct {
	Values map[string]string
	Groups map[string][]Row
}

func (d Defaults) clone() Defaults {
	out := Defaults{
		Values: make(map[string]string, len(d.Values)),
		Groups: make(map[string][]Row, len(d.Groups)),
	}
	for k, v := range d.Values {
		out.Values[k] = v
	}
	for g, rows := range d.Groups {
		cp := make([]Row, len(rows))
		for i, r := range rows {
			cp[i] = r.clone()
		}
		out.Groups[g] = cp
	}
	return out
}
