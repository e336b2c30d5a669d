package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/render"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"

	tea "github.com/charmbracelet/bubbletea"
)

type memGateway struct {
	doc     *model.FamilyTree
	pushErr error
}

func (g *memGateway) Fetch(context.Context) (*model.FamilyTree, error) {
	if g.doc == nil {
		return nil, &syncgw.LoadFailure{Status: 404}
	}
	b, err := syncgw.Encode(g.doc)
	if err != nil {
		return nil, err
	}
	return store.DecodeFamilyBytes(b)
}

func (g *memGateway) Push(_ context.Context, ft *model.FamilyTree) error {
	if g.pushErr != nil {
		return &syncgw.PersistFailure{Err: g.pushErr}
	}
	g.doc = ft
	return nil
}

func testDoc() *model.FamilyTree {
	return &model.FamilyTree{
		FamilyName: "Smiths",
		RootPerson: &model.PersonNode{
			Serial: 1, Name: "Ann", Gender: "Female",
			Spouses: []model.PersonNode{{Serial: 4, Name: "Dan", Gender: "Male"}},
			Children: []model.PersonNode{
				{Serial: 2, Name: "Ben", Gender: "Male"},
				{Serial: 3, Name: "Cat", Gender: "Female", Children: []model.PersonNode{{Serial: 5, Name: "Eve"}}},
			},
		},
	}
}

func newController(gw syncgw.Gateway, startExpanded bool) *app.Controller {
	return app.New(gw,
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithStartExpanded(startExpanded))
}

func fieldsOf(t *testing.T, kv ...string) model.Fields {
	t.Helper()
	m := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	f, err := model.NewFields(m)
	if err != nil {
		t.Fatalf("NewFields: %v", err)
	}
	return f
}

func rowKeys(rows []row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.key())
	}
	return out
}

func TestFlattenTree_CollapsedSectionsShowHeaderOnly(t *testing.T) {
	ctl := newController(&memGateway{doc: testDoc()}, false)
	if _, err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tree := ctl.Tree()
	got := rowKeys(flattenTree(&tree))
	want := []string{"root", "root.spouses", "root.children"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows: got %v want %v", got, want)
	}

	if _, err := ctl.ExpandAll(); err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	tree = ctl.Tree()
	rows := flattenTree(&tree)
	got = rowKeys(rows)
	want = []string{
		"root",
		"root.spouses", "root.spouses[0]",
		"root.children", "root.children[0]", "root.children[1]",
		"root.children[1].children", "root.children[1].children[0]",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows: got %v want %v", got, want)
	}
	if rows[7].indent != 4 || rows[6].indent != 3 {
		t.Fatalf("indent: got %d/%d", rows[6].indent, rows[7].indent)
	}
	if rows[6].owner == nil || rows[6].owner.Name != "Cat" {
		t.Fatalf("section owner: %+v", rows[6].owner)
	}
	if flattenTree(nil) != nil {
		t.Fatalf("expected no rows for nil tree")
	}
}

// Applying every patch the controller emits must leave the local tree equal
// to a fresh full render.
func TestApplyPatches_MatchesFullRender(t *testing.T) {
	for _, startExpanded := range []bool{true, false} {
		name := "collapsed"
		if startExpanded {
			name = "expanded"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ctl := newController(&memGateway{doc: testDoc()}, startExpanded)
			var local render.DisplayTree
			var sync app.SyncState

			check := func(step string, patches []app.Patch) {
				t.Helper()
				if err := applyPatches(&local, &sync, patches); err != nil {
					t.Fatalf("%s: applyPatches: %v", step, err)
				}
				if want := ctl.Tree(); !reflect.DeepEqual(local, want) {
					t.Fatalf("%s: local tree diverged\n got %+v\nwant %+v", step, local.Root, want.Root)
				}
				if sync.Status != ctl.SyncState().Status {
					t.Fatalf("%s: sync %q want %q", step, sync.Status, ctl.SyncState().Status)
				}
			}

			patches, err := ctl.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			check("load", patches)

			res, err := ctl.Add(ctx, treepath.Root(), model.RoleChild, fieldsOf(t, "name", "Fay"))
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			check("add child", res.Patches)

			res, err = ctl.Add(ctx, treepath.MustParse("root.children[0]"), model.RoleSpouse, fieldsOf(t, "name", "Gus"))
			if err != nil {
				t.Fatalf("Add spouse: %v", err)
			}
			check("first spouse", res.Patches)

			res, err = ctl.Edit(ctx, treepath.MustParse("root.children[1]"), fieldsOf(t, "dob", "1950-03-01"))
			if err != nil {
				t.Fatalf("Edit: %v", err)
			}
			check("edit", res.Patches)

			sec, _ := treepath.ParseSection("root.children[1].children")
			patches, err = ctl.Toggle(sec)
			if err != nil {
				t.Fatalf("Toggle: %v", err)
			}
			check("toggle", patches)

			res, err = ctl.Delete(ctx, treepath.MustParse("root.children[0]"))
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			check("delete", res.Patches)

			res, err = ctl.Delete(ctx, treepath.MustParse("root.spouses[0]"))
			if err != nil {
				t.Fatalf("Delete last spouse: %v", err)
			}
			check("delete last spouse", res.Patches)

			patches, _ = ctl.CollapseAll()
			check("collapse all", patches)
			patches, _ = ctl.ExpandAll()
			check("expand all", patches)
		})
	}
}

func TestApplyPatches_HiddenTargetIsNoop(t *testing.T) {
	local := render.DisplayTree{Root: &render.DisplayCard{Path: "root", DOMID: "card-root", Name: "Ann"}}
	var sync app.SyncState
	err := applyPatches(&local, &sync, []app.Patch{
		{Kind: app.PatchCard, Target: "card-nope", Card: &render.DisplayCard{Name: "X"}},
		{Kind: app.PatchSection, Target: "section-nope", Section: &render.DisplaySection{}},
	})
	if err != nil {
		t.Fatalf("applyPatches: %v", err)
	}
	if local.Root.Name != "Ann" {
		t.Fatalf("root changed: %+v", local.Root)
	}

	var empty render.DisplayTree
	if err := applyPatches(&empty, &sync, []app.Patch{{Kind: app.PatchCard, Target: "card-root", Card: &render.DisplayCard{}}}); err == nil {
		t.Fatalf("expected error patching an empty tree")
	}
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, m appModel, msgs ...tea.Msg) appModel {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(appModel)
		// Run controller commands synchronously; ignore textinput blinks.
		if m.busy && cmd != nil {
			next, _ = m.Update(cmd())
			m = next.(appModel)
		}
	}
	return m
}

func loadedModel(t *testing.T, gw *memGateway) appModel {
	t.Helper()
	m := newAppModel(context.Background(), newController(gw, false))
	m.width, m.height = 120, 40
	next, _ := m.Update(m.Init()())
	return next.(appModel)
}

func TestModel_LoadFailureThenRetry(t *testing.T) {
	gw := &memGateway{}
	m := loadedModel(t, gw)
	if m.loaded || m.loadErr == "" {
		t.Fatalf("expected load error, got loaded=%v err=%q", m.loaded, m.loadErr)
	}
	if !strings.Contains(m.View(), "Could not load") {
		t.Fatalf("expected load error in view:\n%s", m.View())
	}
	gw.doc = testDoc()
	m = press(t, m, keyRunes("r"))
	if !m.loaded || len(m.rows) != 3 {
		t.Fatalf("expected loaded tree with 3 rows, got loaded=%v rows=%d", m.loaded, len(m.rows))
	}
}

func TestModel_ToggleKeepsCursor(t *testing.T) {
	m := loadedModel(t, &memGateway{doc: testDoc()})
	m = press(t, m, keyRunes("j"), keyRunes("j"))
	if r, _ := m.selected(); r.key() != "root.children" {
		t.Fatalf("cursor on %q", r.key())
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) != 6 {
		t.Fatalf("expected children expanded (6 rows), got %v", rowKeys(m.rows))
	}
	if r, _ := m.selected(); r.key() != "root.children" {
		t.Fatalf("cursor moved to %q", r.key())
	}
	m = press(t, m, keyRunes("C"))
	if len(m.rows) != 3 {
		t.Fatalf("collapse all: got %v", rowKeys(m.rows))
	}
	m = press(t, m, keyRunes("E"))
	if len(m.rows) != 8 {
		t.Fatalf("expand all: got %v", rowKeys(m.rows))
	}
}

func TestModel_AddChildThroughForm(t *testing.T) {
	gw := &memGateway{doc: testDoc()}
	m := loadedModel(t, gw)
	m = press(t, m, keyRunes("E"), keyRunes("c"))
	if m.mode != modeForm || m.form == nil || m.form.path != "root" || m.form.role != model.RoleChild {
		t.Fatalf("expected add-child form on root, got mode=%v form=%+v", m.mode, m.form)
	}
	if !strings.Contains(m.View(), "Add child") {
		t.Fatalf("form view missing title:\n%s", m.View())
	}
	m = press(t, m, keyRunes("Zoe"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeBrowse {
		t.Fatalf("form still open: flash=%q", m.flash)
	}
	if r, _ := m.selected(); r.key() != "root.children[2]" {
		t.Fatalf("cursor on %q, want the new child", r.key())
	}
	if got := gw.doc.RootPerson.Children[2]; got.Name != "Zoe" || got.Serial != 6 {
		t.Fatalf("pushed child: %+v", got)
	}
	if m.sync.Status != app.SyncCommitted {
		t.Fatalf("sync: %q", m.sync.Status)
	}
}

func TestModel_AddRequiresName(t *testing.T) {
	m := loadedModel(t, &memGateway{doc: testDoc()})
	m = press(t, m, keyRunes("s"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeForm || !m.flashErr || !strings.Contains(m.flash, "Name") {
		t.Fatalf("expected form kept with name error, mode=%v flash=%q", m.mode, m.flash)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse || m.form != nil {
		t.Fatalf("esc did not close form")
	}
}

func TestModel_EditPrefillsForm(t *testing.T) {
	gw := &memGateway{doc: testDoc()}
	m := loadedModel(t, gw)
	m = press(t, m, keyRunes("e"))
	if m.form == nil || m.form.kind != formEdit || m.form.inputs[0].Value() != "Ann" {
		t.Fatalf("expected edit form prefilled with Ann, got %+v", m.form)
	}
	m.form.inputs[0].SetValue("Anna")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if gw.doc.RootPerson.Name != "Anna" {
		t.Fatalf("edit not pushed: %q", gw.doc.RootPerson.Name)
	}
	if m.tree.Root.Name != "Anna" {
		t.Fatalf("local tree not patched: %q", m.tree.Root.Name)
	}
}

func TestModel_DeleteConfirm(t *testing.T) {
	gw := &memGateway{doc: testDoc()}
	m := loadedModel(t, gw)

	m = press(t, m, keyRunes("d"))
	if m.mode != modeBrowse || !strings.Contains(m.flash, "root person") {
		t.Fatalf("root delete should be refused, mode=%v flash=%q", m.mode, m.flash)
	}

	m = press(t, m, keyRunes("E"))
	m.selectKey("root.children[0]")
	m = press(t, m, keyRunes("d"))
	if m.mode != modeConfirm || !strings.Contains(m.View(), "Delete root.children[0]") {
		t.Fatalf("expected confirm prompt:\n%s", m.View())
	}
	m = press(t, m, keyRunes("n"))
	if len(gw.doc.RootPerson.Children) != 2 {
		t.Fatalf("n must not delete")
	}
	m = press(t, m, keyRunes("d"), keyRunes("y"))
	if len(gw.doc.RootPerson.Children) != 1 || gw.doc.RootPerson.Children[0].Name != "Cat" {
		t.Fatalf("delete not pushed: %+v", gw.doc.RootPerson.Children)
	}
	if got := m.tree.Root.Sections[1].Members[0].Path; got != "root.children[0]" {
		t.Fatalf("shifted sibling path: %q", got)
	}
}

func TestModel_SubmitShowsSavingUntilResult(t *testing.T) {
	gw := &memGateway{doc: testDoc()}
	m := loadedModel(t, gw)
	m = press(t, m, keyRunes("E"))
	m.selectKey("root.children[0]")
	m = press(t, m, keyRunes("d"))

	next, cmd := m.Update(keyRunes("y"))
	m = next.(appModel)
	if cmd == nil || !m.busy || m.sync.Status != app.SyncPending {
		t.Fatalf("expected a pending save, busy=%v sync=%q", m.busy, m.sync.Status)
	}
	if !strings.Contains(m.View(), "Saving…") {
		t.Fatalf("title should show the save in flight:\n%s", m.View())
	}

	next, _ = m.Update(cmd())
	m = next.(appModel)
	if m.busy || m.sync.Status != app.SyncCommitted {
		t.Fatalf("expected committed after the result, busy=%v sync=%q", m.busy, m.sync.Status)
	}
}

func TestModel_PersistFailureThenRetry(t *testing.T) {
	gw := &memGateway{doc: testDoc()}
	m := loadedModel(t, gw)
	gw.pushErr = errors.New("store down")
	m = press(t, m, keyRunes("c"), keyRunes("Zoe"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.sync.Status != app.SyncFailed || !m.flashErr || !strings.Contains(m.flash, "retry") {
		t.Fatalf("expected failed sync and retry hint, sync=%q flash=%q", m.sync.Status, m.flash)
	}
	if m.tree.Root.Sections[1].Count != 3 {
		t.Fatalf("edit must be kept locally, count=%d", m.tree.Root.Sections[1].Count)
	}
	if !strings.Contains(m.View(), "Not saved") {
		t.Fatalf("view missing Not saved:\n%s", m.View())
	}

	gw.pushErr = nil
	m = press(t, m, keyRunes("r"))
	if m.sync.Status != app.SyncCommitted || m.flash != "Saved" {
		t.Fatalf("retry: sync=%q flash=%q", m.sync.Status, m.flash)
	}
	if len(gw.doc.RootPerson.Children) != 3 {
		t.Fatalf("retry did not push the kept change")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		w    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"hello", 1, "h"},
		{"hello", 0, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.w); got != tc.want {
			t.Fatalf("truncate(%q,%d)=%q want %q", tc.in, tc.w, got, tc.want)
		}
	}
}

func TestGlyphsASCII(t *testing.T) {
	gs, ok := parseGlyphs("ASCII")
	if !ok || gs != glyphSetASCII {
		t.Fatalf("parseGlyphs: %v %v", gs, ok)
	}
	if _, ok := parseGlyphs("emoji"); ok {
		t.Fatalf("unknown glyph set accepted")
	}
	setGlyphs(glyphSetASCII)
	defer setGlyphs(glyphSetUnicode)
	if glyphTwisty(true) != "v" || glyphTwisty(false) != ">" || glyphDeceased() != "+" {
		t.Fatalf("ascii glyphs not used")
	}
}
