// Package selection keeps the set of selected node and edge ids.
package selection

import "github.com/vanderheijden86/topicmap/pkg/graph"

// Selection is a set of node/edge ids. It is kept a subset of the graph by
// pruning on every removal. The zero value is an empty selection.
type Selection struct {
	ids map[string]struct{}
	// order remembers selection order so the "primary" item is stable.
	order []string
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.order) }

// IsEmpty reports whether nothing is selected.
func (s *Selection) IsEmpty() bool { return len(s.order) == 0 }

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns selected ids in selection order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Primary returns the most recently selected id.
func (s *Selection) Primary() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[len(s.order)-1], true
}

// Add selects id. Returns false if it was already selected.
func (s *Selection) Add(id string) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Remove deselects id. Returns false if it was not selected.
func (s *Selection) Remove(id string) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Toggle flips the selection state of id.
func (s *Selection) Toggle(id string) {
	if !s.Remove(id) {
		s.Add(id)
	}
}

// Set replaces the selection. Duplicate ids collapse to their first
// occurrence. Returns true if the ids or their order changed.
func (s *Selection) Set(ids ...string) bool {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == len(s.order) {
		same := true
		for i, id := range uniq {
			if s.order[i] != id {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	s.ids = seen
	s.order = uniq
	return true
}

// Clear empties the selection. Returns true if anything was selected.
func (s *Selection) Clear() bool {
	if len(s.order) == 0 {
		return false
	}
	s.ids = make(map[string]struct{})
	s.order = nil
	return true
}

// Prune drops ids that no longer exist in v. Returns the dropped ids.
func (s *Selection) Prune(v *graph.View) []string {
	var dropped []string
	for _, id := range s.IDs() {
		if !v.HasNode(id) && !v.HasEdge(id) {
			s.Remove(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Forget removes the ids reported by a graph change.
func (s *Selection) Forget(c graph.Change) bool {
	changed := false
	for _, id := range c.Removed() {
		if s.Remove(id) {
			changed = true
		}
	}
	return changed
}
