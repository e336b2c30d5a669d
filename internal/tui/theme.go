package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted       = ac("240", "243")
	colorSurfaceFg   = ac("235", "252")
	colorSelectedBg  = ac("#e9e9e9", "#262626")
	colorSelectedFg  = ac("235", "255")
	colorAccent      = ac("27", "62")
	colorMale        = ac("25", "75")
	colorFemale      = ac("162", "205")
	colorDeceased    = ac("244", "241")
	colorFlashError  = ac("160", "203")
	colorSyncPending = ac("136", "221")
	colorSyncOK      = ac("28", "114")
)

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
}

// styleName colours a person's name by classification; deceased people are dimmed.
func styleName(classification string, deceased bool) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true).Foreground(colorMale)
	if classification == "female" {
		st = st.Foreground(colorFemale)
	}
	if deceased {
		st = st.Foreground(colorDeceased).Italic(true)
	}
	return st
}

func styleSync(status string) lipgloss.Style {
	switch status {
	case "failed":
		return lipgloss.NewStyle().Foreground(colorFlashError).Bold(true)
	case "pending":
		return lipgloss.NewStyle().Foreground(colorSyncPending)
	case "committed":
		return lipgloss.NewStyle().Foreground(colorSyncOK)
	default:
		return styleMuted()
	}
}

func styleFlash(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Foreground(colorFlashError)
	}
	return lipgloss.NewStyle().Foreground(colorSurfaceFg)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI.
// Only NO_COLOR disables colours; CLICOLOR is a concern of plain CLI output.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}
