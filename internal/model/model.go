package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Role selects which section of a person a new member joins.
type Role string

const (
	RoleSpouse Role = "spouse"
	RoleChild  Role = "child"
)

const (
	FieldSpouses  = "spouses"
	FieldChildren = "children"
)

// SectionField returns the person field a role appends to.
func (r Role) SectionField() (string, bool) {
	switch r {
	case RoleSpouse:
		return FieldSpouses, true
	case RoleChild:
		return FieldChildren, true
	default:
		return "", false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := r.SectionField(); !ok {
		return "", fmt.Errorf("invalid role %q (expected spouse|child)", s)
	}
	return r, nil
}

type PersonNode struct {
	Serial        int    `json:"serial"`
	Name          string `json:"name"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"maritalStatus,omitempty"`
	Religion      string `json:"religion,omitempty"`
	DOB           string `json:"dob,omitempty"`
	DOD           string `json:"dod,omitempty"`
	Image         string `json:"image,omitempty"`
	Notes         string `json:"notes,omitempty"`

	Spouses  []PersonNode `json:"spouses"`
	Children []PersonNode `json:"children"`
}

// MarshalJSON keeps spouses/children as arrays even when nil.
func (p PersonNode) MarshalJSON() ([]byte, error) {
	type wire PersonNode
	w := wire(p)
	if w.Spouses == nil {
		w.Spouses = []PersonNode{}
	}
	if w.Children == nil {
		w.Children = []PersonNode{}
	}
	return json.Marshal(w)
}

// Section returns a pointer to the named member slice, or nil for unknown fields.
func (p *PersonNode) Section(field string) *[]PersonNode {
	switch field {
	case FieldSpouses:
		return &p.Spouses
	case FieldChildren:
		return &p.Children
	default:
		return nil
	}
}

// Deceased reports whether a non-blank date of death is recorded.
func (p *PersonNode) Deceased() bool {
	return strings.TrimSpace(p.DOD) != ""
}

type FamilyTree struct {
	FamilyName string      `json:"familyName" validate:"required"`
	RootPerson *PersonNode `json:"rootPerson" validate:"required"`
}

// Editable person keys, in form order.
const (
	KeyName          = "name"
	KeyGender        = "gender"
	KeyMaritalStatus = "maritalStatus"
	KeyReligion      = "religion"
	KeyDOB           = "dob"
	KeyDOD           = "dod"
	KeyImage         = "image"
	KeyNotes         = "notes"
)

var EditableKeys = []string{KeyName, KeyGender, KeyMaritalStatus, KeyReligion, KeyDOB, KeyDOD, KeyImage, KeyNotes}

func isEditableKey(k string) bool {
	for _, e := range EditableKeys {
		if e == k {
			return true
		}
	}
	return false
}

// Fields is the editable subset of a person submitted by a form.
// Blank values are never stored: a blank field means "leave as is" on edit
// and "omit" on add.
type Fields map[string]string

// NewFields trims values, drops blanks and rejects keys that are not editable.
func NewFields(in map[string]string) (Fields, error) {
	out := Fields{}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.TrimSpace(k)
		if !isEditableKey(key) {
			return nil, fmt.Errorf("unknown field %q", k)
		}
		v := strings.TrimSpace(in[k])
		if v == "" {
			continue
		}
		out[key] = v
	}
	return out, nil
}

// Name returns the name value or "".
func (f Fields) Name() string { return f[KeyName] }

// ApplyTo shallow-merges the fields onto p. Serial and sections are untouched.
func (f Fields) ApplyTo(p *PersonNode) {
	for k, v := range f {
		switch k {
		case KeyName:
			p.Name = v
		case KeyGender:
			p.Gender = v
		case KeyMaritalStatus:
			p.MaritalStatus = v
		case KeyReligion:
			p.Religion = v
		case KeyDOB:
			p.DOB = v
		case KeyDOD:
			p.DOD = v
		case KeyImage:
			p.Image = v
		case KeyNotes:
			p.Notes = v
		}
	}
}

// FieldsOf returns the editable values currently set on p (used to prefill edit forms).
func FieldsOf(p *PersonNode) Fields {
	raw := map[string]string{
		KeyName:          p.Name,
		KeyGender:        p.Gender,
		KeyMaritalStatus: p.MaritalStatus,
		KeyReligion:      p.Religion,
		KeyDOB:           p.DOB,
		KeyDOD:           p.DOD,
		KeyImage:         p.Image,
		KeyNotes:         p.Notes,
	}
	f, _ := NewFields(raw)
	return f
}
