package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a transient message shown once on the next render.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// View is a render snapshot of a screen.
type View[T any] struct {
	Page          Page[T]
	Criteria      Criteria
	Selected      map[string]bool
	SelectedCount int
	AllSelected   bool // every row of the filtered view is selected
	FilteredIDs   []string
	Loaded        bool
	LoadedAt      time.Time
}

// Screen is the view-model of one list screen in one session.
//
// The store is shared; criteria, page, selection and notices belong to the
// session. Every method is safe for concurrent use.
type Screen[T any] struct {
	store    *Store[T]
	fields   FieldSet[T]
	key      func(T) string
	pageSize int

	mu        sync.Mutex
	criteria  Criteria
	page      int
	selection Selection
	notices   []Notice
}

// NewScreen creates a screen over store.
func NewScreen[T any](store *Store[T], fields FieldSet[T], key func(T) string, pageSize int) *Screen[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Screen[T]{store: store, fields: fields, key: key, pageSize: pageSize, page: 1}
}

// Store returns the shared record store.
func (s *Screen[T]) Store() *Store[T] { return s.store }

// SetQuery changes the free-text query and returns to page 1.
func (s *Screen[T]) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = strings.TrimSpace(q)
	if q != s.criteria.Query {
		s.criteria.Query = q
		s.page = 1
	}
}

// SetFilter sets or clears one equality filter and returns to page 1.
func (s *Screen[T]) SetFilter(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value = strings.TrimSpace(value)
	if s.criteria.Equals[key] == value {
		return
	}
	s.criteria = s.criteria.With(key, value)
	s.page = 1
}

// SetPage requests a page; View clamps it.
func (s *Screen[T]) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = n
}

// Criteria returns the current search state.
func (s *Screen[T]) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria.Clone()
}

// Filtered returns the rows matching the current criteria.
func (s *Screen[T]) Filtered() []T {
	s.mu.Lock()
	c := s.criteria
	s.mu.Unlock()
	return Filter(s.store.Rows(), c, s.fields)
}

// View filters, paginates and snapshots the selection.
func (s *Screen[T]) View() View[T] {
	rows := s.store.Rows()

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := Filter(rows, s.criteria, s.fields)
	page := Paginate(filtered, s.page, s.pageSize)
	s.page = page.Number

	ids := s.keys(filtered)
	selected := make(map[string]bool, s.selection.Len())
	for _, id := range s.selection.IDs() {
		selected[id] = true
	}

	return View[T]{
		Page:          page,
		Criteria:      s.criteria.Clone(),
		Selected:      selected,
		SelectedCount: s.selection.Len(),
		AllSelected:   s.selection.Equals(ids),
		FilteredIDs:   ids,
		Loaded:        s.store.Loaded(),
		LoadedAt:      s.store.LoadedAt(),
	}
}

// Toggle flips one id.
func (s *Screen[T]) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Toggle(id)
}

// ToggleAll selects the whole filtered view, or clears the selection when it
// already equals the filtered view.
func (s *Screen[T]) ToggleAll() {
	rows := s.store.Rows()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ToggleAll(s.keys(Filter(rows, s.criteria, s.fields)))
}

// ClearSelection empties the selection.
func (s *Screen[T]) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
}

// SelectedIDs returns the selected ids in selection order.
func (s *Screen[T]) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IDs()
}

// Selected returns the selected records in selection order. Ids no longer in
// the store are skipped.
func (s *Screen[T]) Selected() []T {
	byID := make(map[string]T)
	for _, row := range s.store.Rows() {
		byID[s.key(row)] = row
	}

	var out []T
	for _, id := range s.SelectedIDs() {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out
}

// Find returns the stored record with id.
func (s *Screen[T]) Find(id string) (T, bool) {
	for _, row := range s.store.Rows() {
		if s.key(row) == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Refresh reloads the shared store and drops selected ids that disappeared.
func (s *Screen[T]) Refresh(ctx context.Context) error {
	if err := s.store.Refresh(ctx); err != nil {
		return err
	}
	s.pruneSelection()
	return nil
}

func (s *Screen[T]) pruneSelection() {
	present := make(map[string]struct{})
	for _, row := range s.store.Rows() {
		present[s.key(row)] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Retain(func(id string) bool {
		_, ok := present[id]
		return ok
	})
}

// Notify queues a notice for the next render.
func (s *Screen[T]) Notify(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

// Notices returns and clears the queued notices.
func (s *Screen[T]) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Screen[T]) keys(rows []T) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = s.key(row)
	}
	return ids
}

// MaterialScreen is the materials list with its create/edit modal.
type MaterialScreen struct {
	*Screen[Material]
	Form *FormController
}

// PackageScreen is the warehouse tag list.
type PackageScreen struct {
	*Screen[Package]
}

// PrintTargets returns the selected packages, or the whole filtered view
// when nothing is selected.
func (s *PackageScreen) PrintTargets() []Package {
	if selected := s.Selected(); len(selected) > 0 {
		return selected
	}
	return s.Filtered()
}
