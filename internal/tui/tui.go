// Package tui is the terminal front end: it applies the controller's
// display patches to a local copy of the tree and draws it as an outline.
package tui

import (
	"context"

	"familytree/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	// Glyphs is "unicode" (default) or "ascii".
	Glyphs string
}

func Run(ctx context.Context, ctl *app.Controller, opts Options) error {
	applyColorProfilePreference()
	if gs, ok := parseGlyphs(opts.Glyphs); ok {
		setGlyphs(gs)
	}
	m := newAppModel(ctx, ctl)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
