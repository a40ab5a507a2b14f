package core

import "slices"

// Selection is an ordered set of record ids. Iteration order is the order in
// which ids were selected. The zero value is an empty selection.
//
// Selection is not safe for concurrent use; screens guard it with their mutex.
type Selection struct {
	order []string
	set   map[string]struct{}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.set[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.order) }

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	return slices.Clone(s.order)
}

// Toggle adds id if absent, removes it otherwise.
func (s *Selection) Toggle(id string) {
	if s.Has(id) {
		s.remove(id)
		return
	}
	s.add(id)
}

// ToggleAll flips the selection against the visible ids: if the selection is
// exactly the visible set it is cleared, otherwise it becomes the visible set
// in visible order.
func (s *Selection) ToggleAll(visible []string) {
	if s.Equals(visible) {
		s.Clear()
		return
	}
	s.Clear()
	for _, id := range visible {
		s.add(id)
	}
}

// Equals reports whether the selection holds exactly ids (order ignored).
// An empty selection never equals a non-empty set.
func (s *Selection) Equals(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	distinct := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
		distinct[id] = struct{}{}
	}
	return len(distinct) == len(s.order)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.order = nil
	s.set = nil
}

// Retain drops ids for which keep returns false, e.g. records deleted remotely.
func (s *Selection) Retain(keep func(id string) bool) {
	for _, id := range slices.Clone(s.order) {
		if !keep(id) {
			s.remove(id)
		}
	}
}

func (s *Selection) add(id string) {
	if s.Has(id) {
		return
	}
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	delete(s.set, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}
