package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/publish"
	"familytree/internal/render"
	"familytree/internal/store"
	"familytree/internal/treepath"

	"github.com/spf13/cobra"
)

// loadController returns a controller with the document loaded and every
// section expanded.
func loadController(cmd *cobra.Command, a *App) (*app.Controller, error) {
	ctl, err := newController(a, logger(cmd, a, false), app.WithStartExpanded(true))
	if err != nil {
		return nil, err
	}
	if _, err := ctl.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return ctl, nil
}

type outline render.DisplayTree

func (o outline) Text() string {
	var b strings.Builder
	b.WriteString(o.FamilyName + "\n")
	if o.Root != nil {
		writeCardText(&b, o.Root, 0)
	}
	return b.String()
}

type cardView render.DisplayCard

func (c cardView) Text() string {
	var b strings.Builder
	dc := render.DisplayCard(c)
	writeCardText(&b, &dc, 0)
	return b.String()
}

func writeCardText(b *strings.Builder, c *render.DisplayCard, indent int) {
	pad := strings.Repeat("  ", indent)
	fmt.Fprintf(b, "%s%s %s  [%s]  born %s", pad, c.Name, c.SerialBadge, c.Path, c.Born)
	if c.Deceased {
		died := c.Died
		if died == "" {
			died = "Unknown"
		}
		fmt.Fprintf(b, ", died %s", died)
	}
	b.WriteByte('\n')
	for i := range c.Sections {
		s := &c.Sections[i]
		fmt.Fprintf(b, "%s  %s\n", pad, s.Title())
		for j := range s.Members {
			writeCardText(b, &s.Members[j], indent+2)
		}
	}
}

func newShowCmd(a *App) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the whole tree, or one person with everyone below",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !t.set() {
				return writeOut(cmd, a, outline(ctl.Tree()))
			}
			p, err := t.resolve(ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			card, err := ctl.Card(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, cardView(card))
		},
	}
	t.bind(cmd, "person")
	return cmd
}

type resolved struct {
	Path   string `json:"path"`
	DOMID  string `json:"domId"`
	Serial int    `json:"serial,omitempty"`
	Name   string `json:"name"`
	Depth  int    `json:"depth"`
}

func (r resolved) Text() string {
	return fmt.Sprintf("%s  #%d  %s", r.Path, r.Serial, r.Name)
}

func newResolveCmd(a *App) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a path or serial to the person it addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := t.resolve(ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			person, err := ctl.Person(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, resolved{
				Path:   p.String(),
				DOMID:  treepath.CardDOMID(p),
				Serial: person.Serial,
				Name:   person.Name,
				Depth:  p.Depth(),
			})
		},
	}
	t.bind(cmd, "person")
	return cmd
}

type mutation struct {
	Op     string              `json:"op"`
	Path   string              `json:"path"`
	Serial int                 `json:"serial,omitempty"`
	Sync   app.SyncState       `json:"sync"`
	Card   *render.DisplayCard `json:"card,omitempty"`
}

func (m mutation) Text() string {
	s := m.Op + " " + m.Path
	if m.Serial > 0 {
		s += fmt.Sprintf(" (#%d)", m.Serial)
	}
	if label := m.Sync.Label(); label != "" {
		s += "  " + label
	}
	return s
}

// writeMutation reports a mutation. A failed push still changed the loaded
// tree, so the result is written before the error is returned.
func writeMutation(cmd *cobra.Command, a *App, ctl *app.Controller, op string, res app.Result, err error) error {
	if err != nil && len(res.Patches) == 0 {
		return writeErr(cmd, err)
	}
	out := mutation{Op: op, Path: res.Path.String(), Serial: res.Serial, Sync: res.Sync}
	if op != "deleted" {
		if card, cerr := ctl.Card(res.Path); cerr == nil {
			out.Card = &card
		}
	}
	var hints []string
	if err != nil {
		hints = append(hints, "the change was not saved; re-run the command once the store is reachable")
	}
	if werr := writeOut(cmd, a, out, hints...); werr != nil {
		return werr
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func newAddCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a spouse or child",
	}
	for _, role := range []model.Role{model.RoleSpouse, model.RoleChild} {
		cmd.AddCommand(newAddRoleCmd(a, role))
	}
	return cmd
}

func newAddRoleCmd(a *App, role model.Role) *cobra.Command {
	var t target
	var pf personFlags
	cmd := &cobra.Command{
		Use:   string(role),
		Short: "Add a " + string(role) + " below the person at --path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := pf.fields(cmd)
			if err != nil {
				return writeErr(cmd, errUsage("%v", err))
			}
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			parent, err := t.resolve(ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := ctl.Add(cmd.Context(), parent, role, fields)
			return writeMutation(cmd, a, ctl, "added", res, err)
		},
	}
	t.bind(cmd, "parent")
	pf = bindPersonFlags(cmd)
	return cmd
}

func newEditCmd(a *App) *cobra.Command {
	var t target
	var pf personFlags
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change fields of one person; omitted fields are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := pf.fields(cmd)
			if err != nil {
				return writeErr(cmd, errUsage("%v", err))
			}
			if len(fields) == 0 {
				return writeErr(cmd, errUsage("nothing to change: pass at least one field flag"))
			}
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := t.resolve(ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := ctl.Edit(cmd.Context(), p, fields)
			return writeMutation(cmd, a, ctl, "edited", res, err)
		},
	}
	t.bind(cmd, "person")
	pf = bindPersonFlags(cmd)
	return cmd
}

func newDeleteCmd(a *App) *cobra.Command {
	var t target
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one person and everyone below them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, errUsage("refusing to delete without --yes"))
			}
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := t.resolve(ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := ctl.Delete(cmd.Context(), p)
			return writeMutation(cmd, a, ctl, "deleted", res, err)
		},
	}
	t.bind(cmd, "person")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the delete")
	return cmd
}

func newExportCmd(a *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the family document as JSON (stdout, or a file with --out)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			var buf bytes.Buffer
			name, err := ctl.Export(&buf)
			if err != nil {
				return writeErr(cmd, err)
			}
			out = strings.TrimSpace(out)
			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if st, err := os.Stat(out); err == nil && st.IsDir() {
				out = filepath.Join(out, name)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, map[string]any{"exportedTo": out, "bytes": buf.Len()})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file, or a directory to write <Family>.json into")
	return cmd
}

func newImportCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the stored tree with a family JSON document (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := newController(a, logger(cmd, a, false), app.WithStartExpanded(true))
			if err != nil {
				return writeErr(cmd, err)
			}
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				defer f.Close()
				in = f
			}
			res, err := ctl.Import(cmd.Context(), in)
			return writeMutation(cmd, a, ctl, "imported", res, err)
		},
	}
	return cmd
}

func newRevisionsCmd(a *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "revisions",
		Short: "List stored revisions of the family document (local sqlite store)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, _, err := gateway(a)
			if err != nil {
				return writeErr(cmd, err)
			}
			local, ok := gw.(store.LocalGateway)
			if !ok {
				return writeErr(cmd, errUsage("revisions needs a local store: pass --db or set dbPath"))
			}
			revs, err := local.Blobs.Revisions(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, revs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of revisions (newest first)")
	return cmd
}

func newPublishCmd(a *App) *cobra.Command {
	var to string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the tree as markdown pages (index.md plus one page per person)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := loadController(cmd, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WriteFamily(ctl.Tree(), to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, res)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	return cmd
}
