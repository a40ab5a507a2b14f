// Package appsheettest provides an in-memory AppSheet table backend for tests.
package appsheettest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JonMunkholm/nvl/internal/appsheet"
)

// Row is one table row as column → value.
type Row = map[string]any

// Call records one request seen by the backend.
type Call struct {
	Table    string
	Action   appsheet.Action
	Selector string
	Rows     []Row
}

type table struct {
	key  string
	rows []Row
}

// Backend implements the Do method of *appsheet.Client against in-memory
// tables. Selectors are recorded but not evaluated.
type Backend struct {
	mu     sync.Mutex
	tables map[string]*table
	calls  []Call
	fail   func(Call) error
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{tables: make(map[string]*table)}
}

// AddTable creates (or replaces) a table keyed by keyColumn.
func (b *Backend) AddTable(name, keyColumn string, rows ...Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &table{key: keyColumn}
	for _, r := range rows {
		t.rows = append(t.rows, cloneRow(r))
	}
	b.tables[name] = t
}

// FailWhen installs a hook that can reject a call before it is applied.
func (b *Backend) FailWhen(fn func(Call) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = fn
}

// Rows returns a copy of a table's rows.
func (b *Backend) Rows(name string) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[name]
	if !ok {
		return nil
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = cloneRow(r)
	}
	return out
}

// Calls returns every call seen so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsFor returns the calls matching action.
func (b *Backend) CallsFor(action appsheet.Action) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Do applies req and decodes the affected rows into out.
func (b *Backend) Do(ctx context.Context, req appsheet.Request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows, err := toRows(req.Rows)
	if err != nil {
		return err
	}
	call := Call{Table: req.Table, Action: req.Action, Selector: req.Selector, Rows: rows}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	fail := b.fail
	b.mu.Unlock()

	if fail != nil {
		if err := fail(call); err != nil {
			return err
		}
	}

	b.mu.Lock()
	result, err := b.apply(call)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// apply must be called with mu held.
func (b *Backend) apply(c Call) ([]Row, error) {
	t, ok := b.tables[c.Table]
	if !ok {
		return nil, &appsheet.APIError{StatusCode: 404, Message: fmt.Sprintf("table %q not found", c.Table)}
	}

	switch c.Action {
	case appsheet.ActionFind:
		out := make([]Row, len(t.rows))
		for i, r := range t.rows {
			out[i] = cloneRow(r)
		}
		return out, nil

	case appsheet.ActionAdd:
		for _, r := range c.Rows {
			if t.indexOf(r[t.key]) >= 0 {
				return nil, &appsheet.APIError{StatusCode: 400, Message: fmt.Sprintf("duplicate key %v", r[t.key])}
			}
		}
		for _, r := range c.Rows {
			t.rows = append(t.rows, cloneRow(r))
		}
		return c.Rows, nil

	case appsheet.ActionEdit:
		for _, r := range c.Rows {
			i := t.indexOf(r[t.key])
			if i < 0 {
				return nil, &appsheet.APIError{StatusCode: 400, Message: fmt.Sprintf("row %v not found", r[t.key])}
			}
			for k, v := range r {
				t.rows[i][k] = v
			}
		}
		return c.Rows, nil

	case appsheet.ActionDelete:
		for _, r := range c.Rows {
			if i := t.indexOf(r[t.key]); i >= 0 {
				t.rows = append(t.rows[:i], t.rows[i+1:]...)
			}
		}
		return nil, nil
	}
	return nil, &appsheet.APIError{StatusCode: 400, Message: fmt.Sprintf("unknown action %q", c.Action)}
}

func (t *table) indexOf(key any) int {
	for i, r := range t.rows {
		if fmt.Sprint(r[t.key]) == fmt.Sprint(key) {
			return i
		}
	}
	return -1
}

func toRows(v any) ([]Row, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("rows must be a list of objects: %w", err)
	}
	return rows, nil
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
