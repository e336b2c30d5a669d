package tui

import "familytree/internal/render"

type rowKind int

const (
	rowCard rowKind = iota
	rowSection
)

// row is one visible line of the outline: a person card or the header of
// one of its sections.
type row struct {
	kind    rowKind
	indent  int
	card    *render.DisplayCard
	section *render.DisplaySection
	// owner is the card a section row belongs to.
	owner *render.DisplayCard
}

// key identifies the row across re-flattens: the card or section path.
func (r row) key() string {
	if r.kind == rowSection {
		return r.section.Path
	}
	return r.card.Path
}

// flattenTree lists visible rows depth-first. Collapsed sections contribute
// only their header row.
func flattenTree(t *render.DisplayTree) []row {
	if t == nil || t.Root == nil {
		return nil
	}
	var out []row
	var walk func(c *render.DisplayCard, indent int)
	walk = func(c *render.DisplayCard, indent int) {
		out = append(out, row{kind: rowCard, indent: indent, card: c})
		for i := range c.Sections {
			s := &c.Sections[i]
			out = append(out, row{kind: rowSection, indent: indent + 1, section: s, owner: c})
			if !s.Expanded {
				continue
			}
			for j := range s.Members {
				walk(&s.Members[j], indent+2)
			}
		}
	}
	walk(t.Root, 0)
	return out
}
