// Package render turns the family tree into a display model. It never
// mutates the tree. Collapsed sections carry a header only: their members
// are not rendered at all.
package render

import (
	"strconv"
	"strings"

	"familytree/internal/model"
	"familytree/internal/treepath"
)

const (
	notSpecified = "Not specified"
	unknownDate  = "Unknown"
)

// Expansion answers whether a section is open.
type Expansion interface {
	IsExpanded(sec treepath.SectionPath) bool
}

type DisplayTree struct {
	FamilyName string       `json:"familyName"`
	Root       *DisplayCard `json:"root,omitempty"`
}

type DisplayCard struct {
	Path           string `json:"path"`
	DOMID          string `json:"domId"`
	Depth          int    `json:"depth"`
	Serial         int    `json:"serial,omitempty"`
	SerialBadge    string `json:"serialBadge"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	Gender         string `json:"gender"`
	MaritalStatus  string `json:"maritalStatus"`
	Religion       string `json:"religion"`
	Deceased       bool   `json:"deceased"`
	Born           string `json:"born"`
	Died           string `json:"died,omitempty"`
	Image          string `json:"image,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Deletable      bool   `json:"deletable"`

	Sections []DisplaySection `json:"sections,omitempty"`
}

type DisplaySection struct {
	Path     string        `json:"path"`
	DOMID    string        `json:"domId"`
	Field    string        `json:"field"`
	Label    string        `json:"label"`
	Icon     string        `json:"icon"`
	Count    int           `json:"count"`
	Expanded bool          `json:"expanded"`
	Members  []DisplayCard `json:"members,omitempty"`
}

// Title is the header text, e.g. "Children (3)".
func (s DisplaySection) Title() string {
	return s.Label + " (" + strconv.Itoa(s.Count) + ")"
}

// Tree renders the whole tree from the root person down.
func Tree(ft *model.FamilyTree, exp Expansion) DisplayTree {
	out := DisplayTree{FamilyName: "Family Tree"}
	if ft == nil {
		return out
	}
	if name := strings.TrimSpace(ft.FamilyName); name != "" {
		out.FamilyName = name
	}
	if ft.RootPerson != nil {
		c := Card(ft.RootPerson, treepath.Root(), 0, exp)
		out.Root = &c
	}
	return out
}

// Card renders one person and, recursively, its expanded sections.
func Card(n *model.PersonNode, p treepath.Path, depth int, exp Expansion) DisplayCard {
	c := DisplayCard{
		Path:           p.String(),
		DOMID:          treepath.CardDOMID(p),
		Depth:          depth,
		Serial:         n.Serial,
		SerialBadge:    serialBadge(n.Serial),
		Name:           n.Name,
		Classification: classify(n.Gender),
		Gender:         orDefault(n.Gender, notSpecified),
		MaritalStatus:  orDefault(n.MaritalStatus, notSpecified),
		Religion:       orDefault(n.Religion, notSpecified),
		Deceased:       n.Deceased(),
		Image:          strings.TrimSpace(n.Image),
		Notes:          strings.TrimSpace(n.Notes),
		Deletable:      !p.IsRoot(),
	}
	if born, ok := FormatDate(n.DOB); ok {
		c.Born = born
	} else {
		c.Born = unknownDate
	}
	if c.Deceased {
		c.Died, _ = FormatDate(n.DOD)
	}
	if len(n.Spouses) > 0 {
		c.Sections = append(c.Sections, Section(n, model.FieldSpouses, p, depth, exp))
	}
	if len(n.Children) > 0 {
		c.Sections = append(c.Sections, Section(n, model.FieldChildren, p, depth, exp))
	}
	return c
}

// Section renders the spouses or children list of n, which lives at p.
func Section(n *model.PersonNode, field string, p treepath.Path, depth int, exp Expansion) DisplaySection {
	sp := p.Section(field)
	members := n.Section(field)
	s := DisplaySection{
		Path:     sp.String(),
		DOMID:    treepath.SectionDOMID(sp),
		Field:    field,
		Expanded: exp == nil || exp.IsExpanded(sp),
	}
	switch field {
	case model.FieldSpouses:
		s.Label, s.Icon = "Spouses", "ring"
	case model.FieldChildren:
		s.Label, s.Icon = "Children", "users"
	}
	if members == nil {
		return s
	}
	s.Count = len(*members)
	if !s.Expanded {
		return s
	}
	s.Members = make([]DisplayCard, 0, len(*members))
	for i := range *members {
		s.Members = append(s.Members, Card(&(*members)[i], p.Child(field, i), depth+1, exp))
	}
	return s
}

// FindSection returns the named section of a rendered card.
func (c DisplayCard) FindSection(field string) (DisplaySection, bool) {
	for _, s := range c.Sections {
		if s.Field == field {
			return s, true
		}
	}
	return DisplaySection{}, false
}

func classify(gender string) string {
	if gender == "Female" {
		return "female"
	}
	return "male"
}

func serialBadge(serial int) string {
	if serial <= 0 {
		return "#N/A"
	}
	return "#" + strconv.Itoa(serial)
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
