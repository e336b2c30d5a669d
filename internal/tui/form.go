package tui

import (
	"strings"

	"familytree/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formKind int

const (
	formAdd formKind = iota
	formEdit
)

var fieldLabels = map[string]string{
	model.KeyName:          "Name",
	model.KeyGender:        "Gender",
	model.KeyMaritalStatus: "Marital status",
	model.KeyReligion:      "Religion",
	model.KeyDOB:           "Date of birth",
	model.KeyDOD:           "Date of death",
	model.KeyImage:         "Image URL",
	model.KeyNotes:         "Notes",
}

var fieldPlaceholders = map[string]string{
	model.KeyGender: "Male, Female or Other",
	model.KeyDOB:    "YYYY-MM-DD",
	model.KeyDOD:    "YYYY-MM-DD",
	model.KeyNotes:  "markdown",
}

// memberForm edits the person fields for an add or an edit.
type memberForm struct {
	kind   formKind
	path   string // parent path on add, person path on edit
	role   model.Role
	keys   []string
	inputs []textinput.Model
	focus  int
}

func newMemberForm(kind formKind, path string, role model.Role, prefill model.Fields) *memberForm {
	f := &memberForm{kind: kind, path: path, role: role, keys: append([]string(nil), model.EditableKeys...)}
	for _, k := range f.keys {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 2000
		in.Placeholder = fieldPlaceholders[k]
		in.SetValue(prefill[k])
		f.inputs = append(f.inputs, in)
	}
	f.inputs[0].Focus()
	return f
}

func (f *memberForm) title() string {
	if f.kind == formEdit {
		return "Edit member"
	}
	if f.role == model.RoleSpouse {
		return "Add spouse"
	}
	return "Add child"
}

func (f *memberForm) setFocus(i int) {
	n := len(f.inputs)
	i = ((i % n) + n) % n
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[i].Focus()
}

// values returns the raw input values keyed by field.
func (f *memberForm) values() map[string]string {
	out := make(map[string]string, len(f.keys))
	for i, k := range f.keys {
		out[k] = f.inputs[i].Value()
	}
	return out
}

// update handles one key. submit is true on enter or ctrl+s; cancel on esc.
func (f *memberForm) update(msg tea.KeyMsg) (cmd tea.Cmd, submit, cancel bool) {
	switch msg.String() {
	case "esc", "ctrl+g":
		return nil, false, true
	case "enter", "ctrl+s":
		return nil, true, false
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return nil, false, false
	case "shift+tab", "backtab", "up":
		f.setFocus(f.focus - 1)
		return nil, false, false
	}
	var c tea.Cmd
	f.inputs[f.focus], c = f.inputs[f.focus].Update(msg)
	return c, false, false
}

func (f *memberForm) view(width int) string {
	labelW := 0
	for _, k := range f.keys {
		if w := lipgloss.Width(fieldLabels[k]); w > labelW {
			labelW = w
		}
	}
	inputW := width - labelW - 4
	if inputW < 10 {
		inputW = 10
	}
	lines := []string{styleHeader().Render(f.title()), ""}
	for i, k := range f.keys {
		label := lipgloss.NewStyle().Width(labelW).Render(fieldLabels[k])
		if i == f.focus {
			label = styleSelected().Width(labelW).Render(fieldLabels[k])
		}
		in := f.inputs[i]
		in.Width = inputW
		lines = append(lines, label+"  "+in.View())
	}
	lines = append(lines, "", styleMuted().Render("tab/shift+tab: field   enter/ctrl+s: save   esc: cancel"))
	return strings.Join(lines, "\n")
}
