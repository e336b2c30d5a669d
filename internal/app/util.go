package app

import (
	"strconv"

	"familytree/internal/model"
	"familytree/internal/treepath"
)

func clonePerson(p model.PersonNode) model.PersonNode {
	out := p
	if p.Spouses != nil {
		out.Spouses = make([]model.PersonNode, len(p.Spouses))
		for i := range p.Spouses {
			out.Spouses[i] = clonePerson(p.Spouses[i])
		}
	}
	if p.Children != nil {
		out.Children = make([]model.PersonNode, len(p.Children))
		for i := range p.Children {
			out.Children[i] = clonePerson(p.Children[i])
		}
	}
	return out
}

func countPeople(root *model.PersonNode) int {
	n := 0
	treepath.Walk(root, func(*model.PersonNode, treepath.Path) bool {
		n++
		return true
	})
	return n
}

func itoa(i int) string { return strconv.Itoa(i) }
