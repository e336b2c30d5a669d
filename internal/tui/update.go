package tui

import (
	"errors"
	"fmt"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"

	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampOffset()
		return m, nil

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loaded, m.loadErr = true, ""
		m.apply(msg.patches, "")
		return m, nil

	case resultMsg:
		m.busy = false
		focus := ""
		if msg.err == nil || errors.Is(msg.err, syncgw.ErrPersist) {
			if msg.op == "add" || msg.op == "edit" {
				focus = msg.res.Path.String()
			}
		}
		m.apply(msg.res.Patches, focus)
		m.setFlashForResult(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *appModel) setFlashForResult(msg resultMsg) {
	switch {
	case msg.err == nil && msg.op == "retry":
		m.flash, m.flashErr = "Saved", false
	case msg.err == nil:
		m.flash, m.flashErr = "", false
	case errors.Is(msg.err, syncgw.ErrPersist):
		m.flash, m.flashErr = "Change kept locally but not saved: press r to retry", true
	default:
		m.flash, m.flashErr = fmt.Sprintf("%s failed: %v", msg.op, msg.err), true
	}
}

// apply patches the local tree and re-flattens, keeping the cursor on the
// same row when it is still visible. focus, when set, moves it to that card.
func (m *appModel) apply(patches []app.Patch, focus string) {
	prev := ""
	if r, ok := m.selected(); ok {
		prev = r.key()
	}
	if err := applyPatches(&m.tree, &m.sync, patches); err != nil {
		m.tree = m.ctl.Tree()
		m.sync = m.ctl.SyncState()
	}
	m.rows = flattenTree(&m.tree)
	switch {
	case focus != "" && m.selectKey(focus):
	case prev != "" && m.selectKey(prev):
	default:
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	}
	m.clampOffset()
}

func (m *appModel) selectKey(key string) bool {
	for i, r := range m.rows {
		if r.key() == key {
			m.cursor = i
			return true
		}
	}
	return false
}

func (m *appModel) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	m.clampOffset()
}

func (m *appModel) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k", "ctrl+p":
		m.move(-1)
		return m, nil
	case "down", "j", "ctrl+n":
		m.move(1)
		return m, nil
	case "pgup", "ctrl+u":
		m.move(-m.listHeight())
		return m, nil
	case "pgdown", "ctrl+d":
		m.move(m.listHeight())
		return m, nil
	case "home", "g":
		m.move(-len(m.rows))
		return m, nil
	case "end", "G":
		m.move(len(m.rows))
		return m, nil
	}

	if !m.loaded {
		if msg.String() == "r" && !m.busy {
			m.busy, m.loadErr = true, ""
			return m, m.loadCmd()
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		r, ok := m.selected()
		if !ok || r.kind != rowSection {
			return m, nil
		}
		sec, err := treepath.ParseSection(r.section.Path)
		if err != nil {
			m.flash, m.flashErr = err.Error(), true
			return m, nil
		}
		patches, err := m.ctl.Toggle(sec)
		if err != nil {
			m.flash, m.flashErr = err.Error(), true
			return m, nil
		}
		m.apply(patches, "")
		return m, nil
	case "E":
		patches, err := m.ctl.ExpandAll()
		if err == nil {
			m.apply(patches, "")
		}
		return m, nil
	case "C":
		patches, err := m.ctl.CollapseAll()
		if err == nil {
			m.apply(patches, "")
		}
		return m, nil
	case "s", "c":
		card, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		role := model.RoleChild
		if msg.String() == "s" {
			role = model.RoleSpouse
		}
		m.form = newMemberForm(formAdd, card.Path, role, nil)
		m.mode = modeForm
		return m, nil
	case "e":
		card, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		p, err := treepath.Parse(card.Path)
		if err != nil {
			return m, nil
		}
		person, err := m.ctl.Person(p)
		if err != nil {
			m.flash, m.flashErr = err.Error(), true
			return m, nil
		}
		m.form = newMemberForm(formEdit, card.Path, "", model.FieldsOf(&person))
		m.mode = modeForm
		return m, nil
	case "d", "x":
		card, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		if !card.Deletable {
			m.flash, m.flashErr = "The root person cannot be deleted", true
			return m, nil
		}
		m.confirmPath = card.Path
		m.mode = modeConfirm
		return m, nil
	case "r":
		if !m.sync.Unsaved() {
			return m, nil
		}
		m.startSave()
		return m, m.retryCmd()
	}
	return m, nil
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeBrowse
		return m, nil
	}
	cmd, submit, cancel := m.form.update(msg)
	switch {
	case cancel:
		m.form, m.mode = nil, modeBrowse
		return m, nil
	case !submit:
		return m, cmd
	}

	fields, err := model.NewFields(m.form.values())
	if err != nil {
		m.flash, m.flashErr = err.Error(), true
		return m, nil
	}
	p, err := treepath.Parse(m.form.path)
	if err != nil {
		m.flash, m.flashErr = err.Error(), true
		return m, nil
	}
	if m.form.kind == formAdd && fields.Name() == "" {
		m.flash, m.flashErr = "Name is required", true
		return m, nil
	}
	f := m.form
	m.form, m.mode = nil, modeBrowse
	m.startSave()
	if f.kind == formEdit {
		return m, m.editCmd(p, fields)
	}
	return m, m.addCmd(p, f.role, fields)
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		p, err := treepath.Parse(m.confirmPath)
		m.mode, m.confirmPath = modeBrowse, ""
		if err != nil {
			m.flash, m.flashErr = err.Error(), true
			return m, nil
		}
		m.startSave()
		return m, m.deleteCmd(p)
	case "n", "N", "esc", "ctrl+g", "q":
		m.mode, m.confirmPath = modeBrowse, ""
	}
	return m, nil
}

// startSave marks a change as in flight; the result message replaces the
// pending state with the controller's.
func (m *appModel) startSave() {
	m.busy = true
	m.sync = app.SyncState{Status: app.SyncPending}
}
