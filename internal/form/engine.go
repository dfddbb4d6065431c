package form

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dErrors "kycportal/pkg/domain-errors"
)

var groupPathPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)\[(\d+)\]\.([A-Za-z][A-Za-z0-9]*)$`)

// IDGenerator produces candidate row ids. The engine re-asks until it gets
// one it has not handed out in the current session.
type IDGenerator interface {
	NewID(prefix string) string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used by derived values and date rules.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid row id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// ReadOnly freezes the buffer: every mutation becomes a no-op.
func ReadOnly() Option {
	return func(e *Engine) { e.readOnly = true }
}

// Engine holds one form instance. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	schema   *Schema
	readOnly bool
	editing  bool
	now      func() time.Time
	ids      IDGenerator

	defaults Defaults
	values   map[string]string
	groups   map[string]*arena
	usedIDs  map[string]struct{}
	// generation bumps on every Initialize so late submit completions from a
	// previous buffer are ignored.
	generation uint64
}

// New builds an engine for schema seeded with defaults.
func New(schema *Schema, defaults Defaults, opts ...Option) *Engine {
	e := &Engine{
		schema: schema,
		now:    time.Now,
		ids:    uuidGenerator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.initialize(defaults)
	return e
}

// Initialize replaces the buffer with defaults and leaves edit mode.
// It is not gated by the read-only flag: re-hydration always wins.
func (e *Engine) Initialize(defaults Defaults) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialize(defaults)
}

func (e *Engine) initialize(defaults Defaults) {
	e.defaults = defaults.clone()
	e.values = make(map[string]string, len(e.schema.Fields))
	e.groups = make(map[string]*arena, len(e.schema.Groups))
	e.usedIDs = make(map[string]struct{})
	e.editing = false
	e.generation++

	for _, f := range e.schema.Fields {
		e.values[f.Name] = e.defaults.Values[f.Name]
	}
	for i := range e.schema.Groups {
		g := &e.schema.Groups[i]
		a := &arena{}
		for _, r := range e.defaults.Groups[g.Name] {
			row := r.clone()
			if row.ID == "" {
				row.ID = e.nextID(g.IDPrefix)
			}
			e.usedIDs[row.ID] = struct{}{}
			for _, f := range g.Fields {
				if _, ok := row.Values[f.Name]; !ok {
					row.Values[f.Name] = ""
				}
			}
			a.push(row)
		}
		e.groups[g.Name] = a
	}
}

func (e *Engine) nextID(prefix string) string {
	for {
		candidate := e.ids.NewID(prefix)
		if _, taken := e.usedIDs[candidate]; !taken {
			e.usedIDs[candidate] = struct{}{}
			return candidate
		}
	}
}

// Mutable reports whether mutations currently take effect.
func (e *Engine) Mutable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutable()
}

func (e *Engine) mutable() bool {
	if e.readOnly {
		return false
	}
	return !e.schema.RequireEditMode || e.editing
}

// SetReadOnly flips the read-only gate. Callers recompute it from the
// current session on every request.
func (e *Engine) SetReadOnly(readOnly bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readOnly = readOnly
	if readOnly {
		e.editing = false
	}
}

// BeginEdit enters edit mode. It is a no-op on a read-only form.
func (e *Engine) BeginEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.readOnly {
		return
	}
	e.editing = true
}

// Cancel restores the last defaults and leaves edit mode.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialize(e.defaults)
}

// SetField stores value at path ("name" or "group[i].field"). Values are
// normalised to the field kind. Setting an exclusive flag to true clears it
// on every other row of the group.
func (e *Engine) SetField(path string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mutable() {
		return nil
	}

	if m := groupPathPattern.FindStringSubmatch(path); m != nil {
		g, ok := e.schema.group(m[1])
		if !ok {
			return unknownPath(path)
		}
		f, ok := g.field(m[3])
		if !ok {
			return unknownPath(path)
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return unknownPath(path)
		}
		row := e.groups[g.Name].at(idx)
		if row == nil {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("row %d of %s does not exist", idx, g.Name))
		}
		v, err := normalize(f.Kind, value)
		if err != nil {
			return err
		}
		row.Values[f.Name] = v
		if g.isExclusive(f.Name) && v == "true" {
			e.groups[g.Name].clearOthers(row.ID, f.Name)
		}
		return nil
	}

	f, ok := e.schema.field(path)
	if !ok {
		return unknownPath(path)
	}
	v, err := normalize(f.Kind, value)
	if err != nil {
		return err
	}
	e.values[f.Name] = v
	return nil
}

// AppendRow adds a row to group using the group's defaults overlaid with
// values and returns its id. A read-only form returns "" and no error.
func (e *Engine) AppendRow(group string, values map[string]any) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mutable() {
		return "", nil
	}
	g, ok := e.schema.group(group)
	if !ok {
		return "", unknownPath(group)
	}

	row := Row{Values: make(map[string]string, len(g.Fields))}
	for _, f := range g.Fields {
		row.Values[f.Name] = ""
	}
	if g.NewRow != nil {
		for k, v := range g.NewRow() {
			row.Values[k] = v
		}
	}
	for k, raw := range values {
		f, ok := g.field(k)
		if !ok {
			return "", unknownPath(group + "." + k)
		}
		v, err := normalize(f.Kind, raw)
		if err != nil {
			return "", err
		}
		row.Values[k] = v
	}
	row.ID = e.nextID(g.IDPrefix)
	e.groups[g.Name].push(row)
	for _, name := range g.Exclusive {
		if row.Values[name] == "true" {
			e.groups[g.Name].clearOthers(row.ID, name)
		}
	}
	return row.ID, nil
}

// RemoveRow deletes the live row at index. Removing below the group minimum
// is refused with a *ValidationError and leaves the buffer unchanged.
func (e *Engine) RemoveRow(group string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mutable() {
		return nil
	}
	g, ok := e.schema.group(group)
	if !ok {
		return unknownPath(group)
	}
	a := e.groups[g.Name]
	if a.at(index) == nil {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("row %d of %s does not exist", index, g.Name))
	}
	if a.len()-1 < g.MinRows {
		msg := g.MinRowsMessage
		if msg == "" {
			msg = fmt.Sprintf("At least %d required", g.MinRows)
		}
		return &ValidationError{Errors: map[string]string{g.Name: msg}, minRows: true}
	}
	a.remove(index)
	return nil
}

// Validate runs every rule over the current buffer. It has no side effects.
func (e *Engine) Validate() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validate()
}

func (e *Engine) validate() Result {
	now := e.now()
	errs := make(map[string]string)

	top := func(name string) string { return e.values[name] }
	for _, f := range e.schema.Fields {
		if msg := firstFailure(f, e.values[f.Name], top, now); msg != "" {
			errs[f.Name] = msg
		}
	}
	for i := range e.schema.Groups {
		g := &e.schema.Groups[i]
		for idx, row := range e.groups[g.Name].live() {
			sibling := func(name string) string { return row.Values[name] }
			for _, f := range g.Fields {
				if msg := firstFailure(f, row.Values[f.Name], sibling, now); msg != "" {
					errs[fmt.Sprintf("%s[%d].%s", g.Name, idx, f.Name)] = msg
				}
			}
		}
		if e.groups[g.Name].len() < g.MinRows {
			msg := g.MinRowsMessage
			if msg == "" {
				msg = fmt.Sprintf("At least %d required", g.MinRows)
			}
			errs[g.Name] = msg
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// msgNotANumber is reported for a number field holding non-numeric text,
// ahead of the field's own rules.
const msgNotANumber = "Must be a number"

func firstFailure(f Field, value string, sibling func(string) string, now time.Time) string {
	if f.Kind == KindNumber && strings.TrimSpace(value) != "" {
		if _, err := decimal.NewFromString(strings.TrimSpace(value)); err != nil {
			return msgNotANumber
		}
	}
	for _, r := range f.Rules {
		if !r.check(value, sibling, now) {
			return r.Message
		}
	}
	return ""
}

// Submit validates the buffer and, when valid, hands a snapshot to fn.
// The lock is released while fn runs. A failure from fn is returned as is
// and leaves the buffer untouched. On success the snapshot becomes the new
// baseline for Cancel and edit mode ends, unless the form was
// re-initialized meanwhile.
func (e *Engine) Submit(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	e.mu.Lock()
	if res := e.validate(); !res.Valid {
		e.mu.Unlock()
		return &ValidationError{Errors: res.Errors}
	}
	snap := e.snapshot()
	gen := e.generation
	e.mu.Unlock()

	if err := fn(ctx, snap); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return nil
	}
	e.defaults = snap.Defaults()
	e.editing = false
	return nil
}

// Snapshot returns a deep copy of the buffer with derived values computed.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Values:  make(map[string]string, len(e.values)),
		Groups:  make(map[string][]Row, len(e.groups)),
		Derived: make(map[string]string, len(e.schema.Derived)),
	}
	for k, v := range e.values {
		s.Values[k] = v
	}
	for name, a := range e.groups {
		live := a.live()
		rows := make([]Row, len(live))
		for i, r := range live {
			rows[i] = r.clone()
		}
		s.Groups[name] = rows
	}
	now := e.now()
	for _, d := range e.schema.Derived {
		s.Derived[d.Name] = d.Compute(s, now)
	}
	return s
}

// View renders the buffer for clients: numbers and booleans typed, plus
// errors from the last validation when requested.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshot()

	v := View{
		Form:     e.schema.Name,
		Fields:   make(map[string]any, len(snap.Values)),
		Groups:   make(map[string][]map[string]any, len(snap.Groups)),
		Derived:  make(map[string]any, len(snap.Derived)),
		ReadOnly: e.readOnly,
		Editing:  e.editing,
		Mutable:  e.mutable(),
	}
	for _, f := range e.schema.Fields {
		v.Fields[f.Name] = render(f.Kind, snap.Values[f.Name])
	}
	for i := range e.schema.Groups {
		g := &e.schema.Groups[i]
		rows := make([]map[string]any, 0, len(snap.Groups[g.Name]))
		for _, r := range snap.Groups[g.Name] {
			out := map[string]any{"id": r.ID}
			for _, f := range g.Fields {
				out[f.Name] = render(f.Kind, r.Values[f.Name])
			}
			rows = append(rows, out)
		}
		v.Groups[g.Name] = rows
	}
	for k, d := range snap.Derived {
		v.Derived[k] = render(KindNumber, d)
	}
	return v
}

// Result is the outcome of Validate.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// View is the JSON shape of a form instance.
type View struct {
	Form     string                      `json:"form"`
	Fields   map[string]any              `json:"fields"`
	Groups   map[string][]map[string]any `json:"groups"`
	Derived  map[string]any              `json:"derived"`
	ReadOnly bool                        `json:"readOnly"`
	Editing  bool                        `json:"editing"`
	Mutable  bool                        `json:"mutable"`
	Errors   map[string]string           `json:"errors,omitempty"`
}

func normalize(kind Kind, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		if kind == KindBool && v != "" && v != "true" && v != "false" {
			return "", dErrors.New(dErrors.CodeInvalidInput, "expected a boolean")
		}
		return v, nil
	case bool:
		if kind != KindBool {
			return "", dErrors.New(dErrors.CodeInvalidInput, "unexpected boolean")
		}
		return strconv.FormatBool(v), nil
	case float64:
		if kind == KindBool {
			return "", dErrors.New(dErrors.CodeInvalidInput, "expected a boolean")
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		if kind == KindBool {
			return "", dErrors.New(dErrors.CodeInvalidInput, "expected a boolean")
		}
		return strconv.Itoa(v), nil
	case json.Number:
		if kind == KindBool {
			return "", dErrors.New(dErrors.CodeInvalidInput, "expected a boolean")
		}
		return v.String(), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported value type %T", value))
	}
}

func render(kind Kind, value string) any {
	switch kind {
	case KindBool:
		return value == "true"
	case KindNumber:
		if value == "" {
			return value
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return json.Number(strconv.FormatFloat(n, 'f', -1, 64))
		}
		return value
	default:
		return value
	}
}

func unknownPath(path string) error {
	return dErrors.New(dErrors.CodeInvalidInput, "unknown field "+path)
}
