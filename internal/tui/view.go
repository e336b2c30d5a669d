package tui

import (
	"strings"

	"familytree/internal/render"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const detailMinWidth = 90

func (m appModel) listHeight() int {
	h := m.height - 3 // title line, flash line, help line
	if h < 1 {
		return 1
	}
	return h
}

// truncate cuts s to w cells, keeping ANSI styling intact.
func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w == 1 {
		return xansi.Cut(s, 0, 1)
	}
	return xansi.Cut(s, 0, w-1) + "…"
}

func (m appModel) View() string {
	if m.mode == modeForm && m.form != nil {
		return m.form.view(m.width) + "\n" + m.flashLine()
	}
	title := styleHeader().Render(m.tree.FamilyName)
	if m.tree.FamilyName == "" {
		title = styleHeader().Render("Family Tree")
	}
	if label := m.sync.Label(); label != "" {
		title += "  " + styleSync(string(m.sync.Status)).Render(label)
	}

	var body string
	switch {
	case !m.loaded && m.loadErr != "":
		body = styleFlash(true).Render("Could not load the family tree: "+m.loadErr) + "\n" +
			styleMuted().Render("press r to retry")
	case !m.loaded:
		body = styleMuted().Render("Loading…")
	default:
		body = m.bodyView()
	}
	return strings.Join([]string{truncate(title, m.width), body, m.flashLine(), m.helpLine()}, "\n")
}

func (m appModel) bodyView() string {
	listW := m.width
	showDetail := m.width >= detailMinWidth
	if showDetail {
		listW = m.width / 2
	}
	h := m.listHeight()
	lines := make([]string, 0, h)
	for i := m.offset; i < len(m.rows) && len(lines) < h; i++ {
		line := truncate(renderRow(m.rows[i]), listW)
		if i == m.cursor {
			line = styleSelected().Width(listW).Render(xansi.Strip(line))
		}
		lines = append(lines, line)
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	left := lipgloss.NewStyle().Width(listW).Render(strings.Join(lines, "\n"))
	if !showDetail {
		return left
	}
	card, ok := m.selectedCard()
	if !ok {
		return left
	}
	detail := detailView(card, m.width-listW-2, h)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", detail)
}

func renderRow(r row) string {
	pad := strings.Repeat("  ", r.indent)
	if r.kind == rowSection {
		s := r.section
		return pad + styleMuted().Render(glyphTwisty(s.Expanded)+" "+glyphSectionIcon(s.Icon)+s.Title())
	}
	c := r.card
	name := c.Name
	if c.Deceased {
		name += " " + glyphDeceased()
	}
	return pad + styleName(c.Classification, c.Deceased).Render(name) + " " + styleMuted().Render(c.SerialBadge)
}

func detailView(c *render.DisplayCard, width, height int) string {
	if width < 10 {
		return ""
	}
	field := func(label, v string) string {
		return truncate(styleMuted().Render(label+": ")+v, width)
	}
	lines := []string{
		truncate(styleName(c.Classification, c.Deceased).Render(c.Name)+" "+styleMuted().Render(c.SerialBadge), width),
		"",
		field("Gender", c.Gender),
		field("Marital status", c.MaritalStatus),
		field("Religion", c.Religion),
		field("Born", c.Born),
	}
	if c.Deceased {
		died := c.Died
		if died == "" {
			died = "Unknown"
		}
		lines = append(lines, field("Died", died))
	}
	if c.Image != "" {
		lines = append(lines, field("Image", c.Image))
	}
	if notes := renderNotes(c.Notes, width); notes != "" {
		lines = append(lines, "")
		lines = append(lines, strings.Split(notes, "\n")...)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m appModel) flashLine() string {
	if m.mode == modeConfirm {
		return styleFlash(true).Render(truncate("Delete "+m.confirmPath+" and everyone below? (y/n)", m.width))
	}
	if m.busy {
		return styleMuted().Render("Working…")
	}
	return styleFlash(m.flashErr).Render(truncate(m.flash, m.width))
}

func (m appModel) helpLine() string {
	help := "j/k: move  enter: toggle  E/C: expand/collapse all  s/c: add spouse/child  e: edit  d: delete  q: quit"
	if m.sync.Unsaved() {
		help = "r: retry save  " + help
	}
	return styleMuted().Render(truncate(help, m.width))
}
