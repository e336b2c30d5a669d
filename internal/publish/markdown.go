package publish

import (
	"bytes"
	"fmt"
	"strings"

	"familytree/internal/render"
)

// RenderIndexMarkdown renders the whole tree as a nested markdown list that
// links every person to their page.
func RenderIndexMarkdown(t render.DisplayTree) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.FamilyName))
	writeLn("")
	if t.Root == nil {
		writeLn("_No people yet._")
		return buf.String()
	}

	var walk func(c *render.DisplayCard, indent int)
	walk = func(c *render.DisplayCard, indent int) {
		pad := strings.Repeat("  ", indent)
		line := fmt.Sprintf("%s- [%s](people/%s) %s", pad, mdEscape(c.Name), personFile(c), c.SerialBadge)
		if c.Deceased {
			line += " †"
		}
		writeLn(line)
		for i := range c.Sections {
			s := &c.Sections[i]
			writeLn(pad + "  - " + s.Title())
			for j := range s.Members {
				walk(&s.Members[j], indent+2)
			}
		}
	}
	walk(t.Root, 0)
	return buf.String()
}

// RenderPersonMarkdown renders one person page: details, notes and the
// names of their spouses and children.
func RenderPersonMarkdown(familyName string, c *render.DisplayCard) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + mdEscape(c.Name))
	writeLn("")
	writeLn("## Details")
	writeLn("")
	writeLn("- Family: " + familyName)
	writeLn("- Serial: " + c.SerialBadge)
	writeLn("- Path: `" + c.Path + "`")
	writeLn("- Gender: " + c.Gender)
	writeLn("- Marital status: " + c.MaritalStatus)
	writeLn("- Religion: " + c.Religion)
	writeLn("- Born: " + c.Born)
	if c.Deceased {
		died := c.Died
		if died == "" {
			died = "Unknown"
		}
		writeLn("- Died: " + died)
	}
	if c.Image != "" {
		writeLn("")
		writeLn("![" + mdEscape(c.Name) + "](" + c.Image + ")")
	}
	if strings.TrimSpace(c.Notes) != "" {
		writeLn("")
		writeLn("## Notes")
		writeLn("")
		writeLn(strings.TrimSpace(c.Notes))
	}
	for i := range c.Sections {
		s := &c.Sections[i]
		writeLn("")
		writeLn("## " + s.Label)
		writeLn("")
		for j := range s.Members {
			m := &s.Members[j]
			writeLn(fmt.Sprintf("- [%s](%s) %s", mdEscape(m.Name), personFile(m), m.SerialBadge))
		}
	}
	writeLn("")
	writeLn("[Back to the family](../index.md)")
	return buf.String()
}

// personFile names a person page by serial; serial-less people fall back to
// their DOM id, which is unique within one render.
func personFile(c *render.DisplayCard) string {
	if c.Serial > 0 {
		return fmt.Sprintf("%d.md", c.Serial)
	}
	return c.DOMID + ".md"
}

var mdEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)

func mdEscape(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return mdEscaper.Replace(s)
}
