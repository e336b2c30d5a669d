package tui

import (
	"strings"
	"sync"
)

// Unicode twisties and markers do not render on every terminal font, so an
// ASCII set can be selected via FAMILYTREE_TUI_GLYPHS or the config file.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func parseGlyphs(v string) (glyphSet, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unicode", "utf8":
		return glyphSetUnicode, true
	case "ascii":
		return glyphSetASCII, true
	default:
		return glyphSetUnicode, false
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func glyphTwisty(expanded bool) string {
	switch {
	case glyphs() == glyphSetASCII && expanded:
		return "v"
	case glyphs() == glyphSetASCII:
		return ">"
	case expanded:
		return "▾"
	default:
		return "▸"
	}
}

func glyphDeceased() string {
	if glyphs() == glyphSetASCII {
		return "+"
	}
	return "†"
}

func glyphSectionIcon(icon string) string {
	if glyphs() == glyphSetASCII {
		return ""
	}
	switch icon {
	case "ring":
		return "⚭ "
	case "users":
		return "⚇ "
	}
	return ""
}
