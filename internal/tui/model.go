package tui

import (
	"context"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/render"
	"familytree/internal/treepath"

	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	modeBrowse mode = iota
	modeForm
	modeConfirm
)

type loadedMsg struct {
	patches []app.Patch
	err     error
}

// resultMsg carries the outcome of a mutating controller call.
type resultMsg struct {
	op  string
	res app.Result
	err error
}

type appModel struct {
	ctx context.Context
	ctl *app.Controller

	tree render.DisplayTree
	sync app.SyncState
	rows []row

	cursor int
	offset int
	width  int
	height int

	mode        mode
	form        *memberForm
	confirmPath string

	loaded   bool
	loadErr  string
	busy     bool
	flash    string
	flashErr bool
}

func newAppModel(ctx context.Context, ctl *app.Controller) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	return appModel{ctx: ctx, ctl: ctl, width: 80, height: 24}
}

func (m appModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m appModel) loadCmd() tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		patches, err := ctl.Load(ctx)
		return loadedMsg{patches: patches, err: err}
	}
}

func (m appModel) addCmd(parent treepath.Path, role model.Role, fields model.Fields) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		res, err := ctl.Add(ctx, parent, role, fields)
		return resultMsg{op: "add", res: res, err: err}
	}
}

func (m appModel) editCmd(path treepath.Path, fields model.Fields) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		res, err := ctl.Edit(ctx, path, fields)
		return resultMsg{op: "edit", res: res, err: err}
	}
}

func (m appModel) deleteCmd(path treepath.Path) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		res, err := ctl.Delete(ctx, path)
		return resultMsg{op: "delete", res: res, err: err}
	}
}

func (m appModel) retryCmd() tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		res, err := ctl.Retry(ctx)
		return resultMsg{op: "retry", res: res, err: err}
	}
}

func (m appModel) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// selectedCard is the card under the cursor, or the owner of a selected section.
func (m appModel) selectedCard() (*render.DisplayCard, bool) {
	r, ok := m.selected()
	if !ok {
		return nil, false
	}
	if r.kind == rowSection {
		return r.owner, true
	}
	return r.card, true
}
