// Package expand tracks which spouses/children sections are expanded.
//
// Absent entries read as expanded, so a section created by an add shows up
// open without an explicit entry. The state is never persisted.
package expand

import (
	"familytree/internal/model"
	"familytree/internal/treepath"
)

type Store struct {
	state map[string]bool
}

func New() *Store {
	return &Store{state: map[string]bool{}}
}

func (s *Store) IsExpanded(sec treepath.SectionPath) bool {
	if s == nil {
		return true
	}
	v, ok := s.state[sec.String()]
	return !ok || v
}

func (s *Store) Set(sec treepath.SectionPath, expanded bool) {
	if s.state == nil {
		s.state = map[string]bool{}
	}
	s.state[sec.String()] = expanded
}

// Toggle flips a section and returns its new state.
func (s *Store) Toggle(sec treepath.SectionPath) bool {
	next := !s.IsExpanded(sec)
	s.Set(sec, next)
	return next
}

// Reset clears every entry, which expands everything.
func (s *Store) Reset() {
	s.state = map[string]bool{}
}

// CollapseAll marks every non-empty section in the tree as collapsed,
// following spouses' and children's subtrees alike.
func (s *Store) CollapseAll(root *model.PersonNode) {
	treepath.Walk(root, func(n *model.PersonNode, p treepath.Path) bool {
		if len(n.Spouses) > 0 {
			s.Set(p.Section(model.FieldSpouses), false)
		}
		if len(n.Children) > 0 {
			s.Set(p.Section(model.FieldChildren), false)
		}
		return true
	})
}

// Removed re-keys the state after element index of sec was deleted: entries
// inside the removed subtree are dropped and entries of later siblings move
// down by one, following their nodes.
func (s *Store) Removed(sec treepath.SectionPath, index int) {
	d := sec.Person.Depth()
	next := make(map[string]bool, len(s.state))
	for k, v := range s.state {
		sp, err := treepath.ParseSection(k)
		if err != nil || sp.Person.Depth() <= d || !sp.Person.HasPrefix(sec.Person) {
			next[k] = v
			continue
		}
		steps := sp.Person.Steps()
		if steps[d].Field != sec.Field {
			next[k] = v
			continue
		}
		switch {
		case steps[d].Index == index:
			continue
		case steps[d].Index > index:
			steps[d].Index--
		}
		p, err := treepath.FromSteps(steps...)
		if err != nil {
			continue
		}
		next[p.Section(sp.Field).String()] = v
	}
	s.state = next
}

// Len is the number of explicit entries.
func (s *Store) Len() int { return len(s.state) }
