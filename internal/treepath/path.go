// Package treepath encodes, decodes and resolves positional addresses of
// person nodes, e.g. "root.children[2].spouses[0]".
//
// Paths are positional: removing or reordering a preceding sibling changes
// every later sibling's path. Recompute paths after structural edits and
// never cache them across renders.
package treepath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"familytree/internal/model"
)

const RootSegment = "root"

var (
	ErrInvalidPath  = errors.New("invalid path")
	ErrNodeNotFound = errors.New("node not found")
)

type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidPath }

// Step is one field[index] hop below the root.
type Step struct {
	Field string
	Index int
}

func (s Step) String() string {
	return s.Field + "[" + strconv.Itoa(s.Index) + "]"
}

// Path is a decoded address. The zero value is the root.
type Path struct {
	steps []Step
}

func Root() Path { return Path{} }

// FromSteps builds a path from steps, validating field names and indices.
func FromSteps(steps ...Step) (Path, error) {
	for _, st := range steps {
		if !validField(st.Field) {
			return Path{}, &InvalidPathError{Path: encode(steps), Reason: fmt.Sprintf("unknown field %q", st.Field)}
		}
		if st.Index < 0 {
			return Path{}, &InvalidPathError{Path: encode(steps), Reason: "negative index"}
		}
	}
	return Path{steps: append([]Step(nil), steps...)}, nil
}

func (p Path) IsRoot() bool { return len(p.steps) == 0 }

// Depth is the number of steps below the root.
func (p Path) Depth() int { return len(p.steps) }

func (p Path) Steps() []Step { return append([]Step(nil), p.steps...) }

// Child returns the path of element index in the given section of p.
func (p Path) Child(field string, index int) Path {
	steps := make([]Step, 0, len(p.steps)+1)
	steps = append(steps, p.steps...)
	steps = append(steps, Step{Field: field, Index: index})
	return Path{steps: steps}
}

// Parent splits p into its parent path and final step. ok is false for the root.
func (p Path) Parent() (parent Path, last Step, ok bool) {
	if p.IsRoot() {
		return Path{}, Step{}, false
	}
	n := len(p.steps)
	return Path{steps: append([]Step(nil), p.steps[:n-1]...)}, p.steps[n-1], true
}

// Section returns the section path for one of p's member lists.
func (p Path) Section(field string) SectionPath {
	return SectionPath{Person: p, Field: field}
}

func (p Path) Equal(o Path) bool {
	if len(p.steps) != len(o.steps) {
		return false
	}
	for i := range p.steps {
		if p.steps[i] != o.steps[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.steps) > len(p.steps) {
		return false
	}
	for i := range prefix.steps {
		if p.steps[i] != prefix.steps[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string { return encode(p.steps) }

func encode(steps []Step) string {
	var b strings.Builder
	b.WriteString(RootSegment)
	for _, st := range steps {
		b.WriteByte('.')
		b.WriteString(st.String())
	}
	return b.String()
}

// Indices are canonical decimals: no sign and no leading zeros.
var segmentRE = regexp.MustCompile(`^(\w+)\[(0|[1-9]\d*)\]$`)

func validField(f string) bool {
	return f == model.FieldSpouses || f == model.FieldChildren
}

// Parse decodes s strictly. Every segment after "root" must be
// field[index]; malformed segments fail instead of being skipped.
func Parse(s string) (Path, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, &InvalidPathError{Path: raw, Reason: "empty"}
	}
	segs := strings.Split(s, ".")
	if segs[0] != RootSegment {
		return Path{}, &InvalidPathError{Path: raw, Reason: `must start with "root"`}
	}
	steps := make([]Step, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		st, err := parseStep(seg)
		if err != nil {
			return Path{}, &InvalidPathError{Path: raw, Reason: err.Error()}
		}
		steps = append(steps, st)
	}
	return Path{steps: steps}, nil
}

func parseStep(seg string) (Step, error) {
	m := segmentRE.FindStringSubmatch(seg)
	if m == nil {
		return Step{}, fmt.Errorf("malformed segment %q", seg)
	}
	if !validField(m[1]) {
		return Step{}, fmt.Errorf("unknown field %q", m[1])
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return Step{}, fmt.Errorf("index out of range in %q", seg)
	}
	return Step{Field: m[1], Index: idx}, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// SectionPath addresses the spouses or children list of one person.
type SectionPath struct {
	Person Path
	Field  string
}

func (s SectionPath) String() string {
	return s.Person.String() + "." + s.Field
}

// ParseSection decodes "<personPath>.<field>".
func ParseSection(s string) (SectionPath, error) {
	raw := s
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return SectionPath{}, &InvalidPathError{Path: raw, Reason: "missing section field"}
	}
	field := s[i+1:]
	if !validField(field) {
		return SectionPath{}, &InvalidPathError{Path: raw, Reason: fmt.Sprintf("unknown section %q", field)}
	}
	p, err := Parse(s[:i])
	if err != nil {
		return SectionPath{}, &InvalidPathError{Path: raw, Reason: err.(*InvalidPathError).Reason}
	}
	return SectionPath{Person: p, Field: field}, nil
}

var domUnsafe = strings.NewReplacer("[", "-", "]", "-", ".", "-")

// CardDOMID is the element id of the card rendered for p.
func CardDOMID(p Path) string {
	return "card-" + domUnsafe.Replace(p.String())
}

// SectionDOMID is the element id of a section's content container.
func SectionDOMID(s SectionPath) string {
	return "section-" + domUnsafe.Replace(s.String())
}
