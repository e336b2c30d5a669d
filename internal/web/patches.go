package web

import (
	"fmt"

	"familytree/internal/app"

	"github.com/starfederation/datastar-go/datastar"
)

// applyPatches turns controller patches into Datastar element patches.
func (s *Server) applyPatches(sse *datastar.ServerSentEventGenerator, patches []app.Patch) error {
	for _, p := range patches {
		if err := s.applyPatch(sse, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) applyPatch(sse *datastar.ServerSentEventGenerator, p app.Patch) error {
	var (
		name     string
		data     any
		selector = "#" + p.Target
		mode     = datastar.ElementPatchModeOuter
	)
	switch p.Kind {
	case app.PatchTree:
		name, data, mode = "tree_body", p.Tree, datastar.ElementPatchModeInner
	case app.PatchCard:
		name, data = "card", p.Card
	case app.PatchSection:
		name, data, selector = "section", p.Section, selector+"-wrap"
	case app.PatchSectionAppend:
		name, data, mode = "card", p.Card, datastar.ElementPatchModeAppend
	case app.PatchSectionHeader:
		name, data, selector = "section_header", p.Section, selector+"-header"
	case app.PatchSync:
		name, data = "sync_status", p.Sync
	default:
		return fmt.Errorf("web: unknown patch kind %q", p.Kind)
	}
	html, err := s.renderTemplate(name, data)
	if err != nil {
		return err
	}
	return sse.PatchElements(html, datastar.WithSelector(selector), datastar.WithMode(mode))
}

func (s *Server) flash(sse *datastar.ServerSentEventGenerator, msg string) error {
	html, err := s.renderTemplate("flash", msg)
	if err != nil {
		return err
	}
	return sse.PatchElements(html, datastar.WithSelector("#flash"), datastar.WithMode(datastar.ElementPatchModeOuter))
}

func (s *Server) closeForm(sse *datastar.ServerSentEventGenerator) error {
	return sse.PatchElements(`<div id="member-form"></div>`, datastar.WithSelector("#member-form"), datastar.WithMode(datastar.ElementPatchModeOuter))
}

func alert(sse *datastar.ServerSentEventGenerator, msg string) error {
	return sse.ExecuteScript(fmt.Sprintf("alert(%q)", msg))
}
