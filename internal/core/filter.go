package core

import (
	"strings"
)

// Criteria is the search state of a screen.
type Criteria struct {
	Query  string
	Equals map[string]string
}

// Active reports whether any predicate would exclude a row.
func (c Criteria) Active() bool {
	if strings.TrimSpace(c.Query) != "" {
		return true
	}
	for _, v := range c.Equals {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c Criteria) Clone() Criteria {
	if c.Equals == nil {
		return c
	}
	eq := make(map[string]string, len(c.Equals))
	for k, v := range c.Equals {
		eq[k] = v
	}
	c.Equals = eq
	return c
}

// With returns a copy of c with one equality filter set (or cleared when value is empty).
func (c Criteria) With(key, value string) Criteria {
	c = c.Clone()
	if c.Equals == nil {
		c.Equals = make(map[string]string)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(c.Equals, key)
	} else {
		c.Equals[key] = value
	}
	return c
}

// FieldSet describes how a record type is searched.
type FieldSet[T any] struct {
	// Search lists the fields matched by the free-text query.
	Search []func(T) string
	// Equals maps a filter key to the categorical field it compares.
	Equals map[string]func(T) string
}

// Filter returns the rows matching c, in their original order.
//
// The query is a case-insensitive substring test against at least one
// searchable field. Each non-empty equality filter must match exactly.
// Unknown filter keys are ignored.
func Filter[T any](rows []T, c Criteria, fields FieldSet[T]) []T {
	query := strings.ToLower(strings.TrimSpace(c.Query))

	type eqCheck struct {
		get  func(T) string
		want string
	}
	var checks []eqCheck
	for key, want := range c.Equals {
		want = strings.TrimSpace(want)
		get, ok := fields.Equals[key]
		if want == "" || !ok {
			continue
		}
		checks = append(checks, eqCheck{get: get, want: want})
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if query != "" && !matchesQuery(row, query, fields.Search) {
			continue
		}
		ok := true
		for _, chk := range checks {
			if strings.TrimSpace(chk.get(row)) != chk.want {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

func matchesQuery[T any](row T, query string, search []func(T) string) bool {
	for _, get := range search {
		if strings.Contains(strings.ToLower(get(row)), query) {
			return true
		}
	}
	return false
}

// Distinct returns the non-empty values of a field in order of first
// appearance. Used to populate filter dropdowns.
func Distinct[T any](rows []T, get func(T) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		v := strings.TrimSpace(get(row))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Package equality filter keys.
const (
	FilterGoodsGroup = "group"
	FilterQuality    = "quality"
	FilterWarehouse  = "warehouse"
)

// MaterialFields searches materials by id, name, specification and note.
var MaterialFields = FieldSet[Material]{
	Search: []func(Material) string{
		func(m Material) string { return m.ID },
		func(m Material) string { return m.Name },
		func(m Material) string { return m.Spec },
		func(m Material) string { return m.Note },
	},
}

// PackageFields searches packages by code and id, with categorical filters
// on goods group, quality and warehouse.
var PackageFields = FieldSet[Package]{
	Search: []func(Package) string{
		func(p Package) string { return p.Code },
		func(p Package) string { return p.ID },
		func(p Package) string { return p.GoodsGroup },
		func(p Package) string { return p.WarehouseCode },
	},
	Equals: map[string]func(Package) string{
		FilterGoodsGroup: func(p Package) string { return p.GoodsGroup },
		FilterQuality:    func(p Package) string { return p.Quality },
		FilterWarehouse:  func(p Package) string { return p.WarehouseCode },
	},
}
