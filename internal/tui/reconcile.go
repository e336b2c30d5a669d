package tui

import (
	"fmt"

	"familytree/internal/app"
	"familytree/internal/render"
)

// applyPatches updates the local display tree in place, the way the browser
// applies element patches. A patch whose target is not displayed, such as a
// card inside a collapsed section, is a no-op.
func applyPatches(t *render.DisplayTree, sync *app.SyncState, patches []app.Patch) error {
	for _, p := range patches {
		if err := applyPatch(t, sync, p); err != nil {
			return err
		}
	}
	return nil
}

func applyPatch(t *render.DisplayTree, sync *app.SyncState, p app.Patch) error {
	switch p.Kind {
	case app.PatchTree:
		*t = *p.Tree
		return nil
	case app.PatchSync:
		*sync = *p.Sync
		return nil
	}
	if t.Root == nil {
		return fmt.Errorf("patch %s %s: no tree", p.Kind, p.Target)
	}
	switch p.Kind {
	case app.PatchCard:
		c := findCard(t.Root, p.Target)
		if c != nil {
			*c = *p.Card
		}
	case app.PatchSection, app.PatchSectionHeader, app.PatchSectionAppend:
		s := findSection(t.Root, p.Target)
		if s == nil {
			return nil
		}
		switch p.Kind {
		case app.PatchSection:
			*s = *p.Section
		case app.PatchSectionHeader:
			s.Count, s.Expanded = p.Section.Count, p.Section.Expanded
			s.Label, s.Icon = p.Section.Label, p.Section.Icon
			if !s.Expanded {
				s.Members = nil
			}
		case app.PatchSectionAppend:
			s.Members = append(s.Members, *p.Card)
		}
	default:
		return fmt.Errorf("unknown patch kind %q", p.Kind)
	}
	return nil
}

func findCard(c *render.DisplayCard, domID string) *render.DisplayCard {
	if c.DOMID == domID {
		return c
	}
	for i := range c.Sections {
		for j := range c.Sections[i].Members {
			if f := findCard(&c.Sections[i].Members[j], domID); f != nil {
				return f
			}
		}
	}
	return nil
}

func findSection(c *render.DisplayCard, domID string) *render.DisplaySection {
	for i := range c.Sections {
		s := &c.Sections[i]
		if s.DOMID == domID {
			return s
		}
		for j := range s.Members {
			if f := findSection(&s.Members[j], domID); f != nil {
				return f
			}
		}
	}
	return nil
}
