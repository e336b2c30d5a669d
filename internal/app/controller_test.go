package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"familytree/internal/model"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"
)

type fakeGateway struct {
	doc     *model.FamilyTree
	pushErr error
	pushes  int
	last    []byte
}

func (g *fakeGateway) Fetch(context.Context) (*model.FamilyTree, error) {
	if g.doc == nil {
		return nil, &syncgw.LoadFailure{Status: 404}
	}
	b, err := syncgw.Encode(g.doc)
	if err != nil {
		return nil, err
	}
	return store.DecodeFamilyBytes(b)
}

func (g *fakeGateway) Push(_ context.Context, ft *model.FamilyTree) error {
	g.pushes++
	if g.pushErr != nil {
		return &syncgw.PersistFailure{Err: g.pushErr}
	}
	b, err := syncgw.Encode(ft)
	if err != nil {
		return err
	}
	g.last = b
	return nil
}

func smiths() *model.FamilyTree {
	return &model.FamilyTree{
		FamilyName: "Smiths",
		RootPerson: &model.PersonNode{Serial: 1, Name: "A", Spouses: []model.PersonNode{}, Children: []model.PersonNode{}},
	}
}

func newTestController(t *testing.T, gw *fakeGateway) *Controller {
	t.Helper()
	c := New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithStartExpanded(true))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func fields(t *testing.T, kv ...string) model.Fields {
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

func kinds(ps []Patch) []PatchKind {
	out := make([]PatchKind, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Kind)
	}
	return out
}

func sameKinds(got []Patch, want ...PatchKind) bool {
	k := kinds(got)
	if len(k) != len(want) {
		return false
	}
	for i := range k {
		if k[i] != want[i] {
			return false
		}
	}
	return true
}

func TestLoad_ReturnsTreeAndSyncPatches(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ps, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !sameKinds(ps, PatchTree, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(ps))
	}
	if ps[0].Target != "tree-content" || ps[0].Tree.FamilyName != "Smiths" {
		t.Fatalf("unexpected tree patch: %+v", ps[0])
	}
	if got := c.SyncState().Status; got != SyncCommitted {
		t.Fatalf("expected committed after load, got %s", got)
	}
}

func TestLoad_FailureKeepsCurrentTree(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := newTestController(t, gw)
	gw.doc = nil
	_, err := c.Load(context.Background())
	if !errors.Is(err, syncgw.ErrLoad) {
		t.Fatalf("expected load failure, got %v", err)
	}
	if !c.Loaded() {
		t.Fatalf("expected the previous tree to stay loaded")
	}
}

func TestLoad_CollapsesNonEmptySections(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}}
	gw := &fakeGateway{doc: ft}
	c := New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.IsExpanded(treepath.Root().Section(model.FieldChildren)) {
		t.Fatalf("expected children collapsed after load")
	}
	if !c.IsExpanded(treepath.Root().Section(model.FieldSpouses)) {
		t.Fatalf("empty spouses section should keep the default")
	}
}

func TestAdd_ChildThenSpouseGetNextSerials(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := newTestController(t, gw)
	ctx := context.Background()

	res, err := c.Add(ctx, treepath.Root(), model.RoleChild, fields(t, "name", "B"))
	if err != nil {
		t.Fatalf("Add child: %v", err)
	}
	if res.Serial != 2 || res.Path.String() != "root.children[0]" {
		t.Fatalf("unexpected add result: serial=%d path=%s", res.Serial, res.Path)
	}
	// First child: the parent card gains the section.
	if !sameKinds(res.Patches, PatchCard, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	if res.Patches[0].Target != "card-root" {
		t.Fatalf("expected root card target, got %q", res.Patches[0].Target)
	}

	res, err = c.Add(ctx, treepath.MustParse("root.children[0]"), model.RoleSpouse, fields(t, "name", "C"))
	if err != nil {
		t.Fatalf("Add spouse: %v", err)
	}
	if res.Serial != 3 {
		t.Fatalf("expected serial 3, got %d", res.Serial)
	}
	p, err := c.Person(treepath.MustParse("root.children[0].spouses[0]"))
	if err != nil {
		t.Fatalf("Person: %v", err)
	}
	if p.Name != "C" || p.Serial != 3 {
		t.Fatalf("unexpected node: %+v", p)
	}
	if gw.pushes != 2 {
		t.Fatalf("expected 2 pushes, got %d", gw.pushes)
	}
	if !strings.Contains(string(gw.last), `"name": "C"`) {
		t.Fatalf("pushed document does not contain the new spouse:\n%s", gw.last)
	}
}

func TestAdd_ExpandedSectionAppendsAndUpdatesHeader(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}}
	c := newTestController(t, &fakeGateway{doc: ft})

	res, err := c.Add(context.Background(), treepath.Root(), model.RoleChild, fields(t, "name", "D"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sameKinds(res.Patches, PatchSectionAppend, PatchSectionHeader, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	app := res.Patches[0]
	if app.Target != "section-root-children" || app.Card == nil || app.Card.Path != "root.children[1]" {
		t.Fatalf("unexpected append patch: %+v", app)
	}
	if app.Card.Depth != 1 {
		t.Fatalf("expected depth 1, got %d", app.Card.Depth)
	}
	if got := res.Patches[1].Section.Title(); got != "Children (2)" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestAdd_CollapsedSectionUpdatesHeaderOnly(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}}
	c := newTestController(t, &fakeGateway{doc: ft})
	if _, err := c.Toggle(treepath.Root().Section(model.FieldChildren)); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	res, err := c.Add(context.Background(), treepath.Root(), model.RoleChild, fields(t, "name", "D"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sameKinds(res.Patches, PatchSectionHeader, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	sec := res.Patches[0].Section
	if sec.Count != 2 || sec.Expanded || len(sec.Members) != 0 {
		t.Fatalf("unexpected collapsed header: %+v", sec)
	}
}

func TestAdd_Errors(t *testing.T) {
	c := newTestController(t, &fakeGateway{doc: smiths()})
	ctx := context.Background()

	if _, err := c.Add(ctx, treepath.MustParse("root.children[4]"), model.RoleChild, fields(t, "name", "X")); !errors.Is(err, treepath.ErrNodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.Add(ctx, treepath.Root(), model.RoleChild, fields(t, "gender", "Male")); err == nil {
		t.Fatalf("expected missing name to be rejected")
	}

	empty := New(&fakeGateway{})
	if _, err := empty.Add(ctx, treepath.Root(), model.RoleChild, fields(t, "name", "X")); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestEdit_ReplacesCardOnly(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}}
	c := newTestController(t, &fakeGateway{doc: ft})

	res, err := c.Edit(context.Background(), treepath.MustParse("root.children[0]"), fields(t, "name", "Bee", "gender", "Female"))
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !sameKinds(res.Patches, PatchCard, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	card := res.Patches[0].Card
	if card.DOMID != "card-root-children-0-" || card.Name != "Bee" || card.Classification != "female" {
		t.Fatalf("unexpected card: %+v", card)
	}
	if card.Depth != 1 {
		t.Fatalf("expected the card rendered at depth 1, got %d", card.Depth)
	}
}

func TestDelete_ShiftsLaterSiblingsDown(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}, {Serial: 3, Name: "C"}}
	c := newTestController(t, &fakeGateway{doc: ft})

	res, err := c.Delete(context.Background(), treepath.MustParse("root.children[0]"))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !sameKinds(res.Patches, PatchSection, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	sec := res.Patches[0].Section
	if sec.Count != 1 || len(sec.Members) != 1 || sec.Members[0].Name != "C" || sec.Members[0].Path != "root.children[0]" {
		t.Fatalf("expected re-rendered section with shifted sibling: %+v", sec)
	}
	p, err := c.Person(treepath.MustParse("root.children[0]"))
	if err != nil || p.Name != "C" {
		t.Fatalf("expected C at root.children[0], got %+v (%v)", p, err)
	}
}

func TestDelete_LastMemberReplacesParentCard(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Spouses = []model.PersonNode{{Serial: 2, Name: "S"}}
	c := newTestController(t, &fakeGateway{doc: ft})

	res, err := c.Delete(context.Background(), treepath.MustParse("root.spouses[0]"))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !sameKinds(res.Patches, PatchCard, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	if _, ok := res.Patches[0].Card.FindSection(model.FieldSpouses); ok {
		t.Fatalf("empty spouses section should not be rendered")
	}
}

func TestDelete_KeepsExpansionOfShiftedSiblings(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{
		{Serial: 2, Name: "B"},
		{Serial: 3, Name: "C", Children: []model.PersonNode{{Serial: 4, Name: "D"}}},
	}
	c := newTestController(t, &fakeGateway{doc: ft})
	if _, err := c.Toggle(treepath.MustParse("root.children[1]").Section(model.FieldChildren)); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := c.Delete(context.Background(), treepath.MustParse("root.children[0]")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c.IsExpanded(treepath.MustParse("root.children[0]").Section(model.FieldChildren)) {
		t.Fatalf("C's collapsed children section should follow it to index 0")
	}
}

func TestDelete_RootRejected(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := newTestController(t, gw)
	if _, err := c.Delete(context.Background(), treepath.Root()); err == nil {
		t.Fatalf("expected root delete to fail")
	}
	if gw.pushes != 0 {
		t.Fatalf("rejected delete must not push")
	}
}

func TestPersistFailure_KeepsEditAndRetryCommits(t *testing.T) {
	gw := &fakeGateway{doc: smiths(), pushErr: errors.New("connection refused")}
	c := newTestController(t, gw)
	ctx := context.Background()

	res, err := c.Add(ctx, treepath.Root(), model.RoleChild, fields(t, "name", "B"))
	if !errors.Is(err, syncgw.ErrPersist) {
		t.Fatalf("expected persist failure, got %v", err)
	}
	if res.Sync.Status != SyncFailed || !res.Sync.Unsaved() {
		t.Fatalf("expected failed sync state, got %+v", res.Sync)
	}
	if len(res.Patches) == 0 || res.Patches[len(res.Patches)-1].Kind != PatchSync {
		t.Fatalf("expected patches to end with the sync indicator: %v", kinds(res.Patches))
	}
	if p, err := c.Person(treepath.MustParse("root.children[0]")); err != nil || p.Name != "B" {
		t.Fatalf("the edit should stay in memory after a failed push: %+v (%v)", p, err)
	}

	gw.pushErr = nil
	res, err = c.Retry(ctx)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if res.Sync.Status != SyncCommitted || c.SyncState().Unsaved() {
		t.Fatalf("expected committed after retry, got %+v", res.Sync)
	}
	if !strings.Contains(string(gw.last), `"name": "B"`) {
		t.Fatalf("retry did not push the kept edit:\n%s", gw.last)
	}
}

func TestToggleAndExpandCollapseAll(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B", Spouses: []model.PersonNode{{Serial: 3, Name: "C"}}}}
	c := newTestController(t, &fakeGateway{doc: ft})
	sec := treepath.Root().Section(model.FieldChildren)

	ps, err := c.Toggle(sec)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !sameKinds(ps, PatchSection) || ps[0].Section.Expanded || ps[0].Target != "section-root-children" {
		t.Fatalf("unexpected toggle patch: %+v", ps)
	}

	ps, err = c.ExpandAll()
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if !sameKinds(ps, PatchTree) || !c.IsExpanded(sec) {
		t.Fatalf("expected everything expanded")
	}

	if _, err := c.CollapseAll(); err != nil {
		t.Fatalf("CollapseAll: %v", err)
	}
	if c.IsExpanded(sec) || c.IsExpanded(treepath.MustParse("root.children[0]").Section(model.FieldSpouses)) {
		t.Fatalf("expected non-empty sections collapsed")
	}

	if _, err := c.Toggle(treepath.MustParse("root.children[3]").Section(model.FieldChildren)); !errors.Is(err, treepath.ErrNodeNotFound) {
		t.Fatalf("expected not found for stale path, got %v", err)
	}
}

func TestImport_WithoutRootPersonRejected(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := newTestController(t, gw)

	_, err := c.Import(context.Background(), strings.NewReader(`{"familyName":"Joneses"}`))
	if !errors.Is(err, store.ErrInvalidImport) {
		t.Fatalf("expected invalid import, got %v", err)
	}
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.FamilyName != "Smiths" || snap.RootPerson.Name != "A" {
		t.Fatalf("tree changed after rejected import: %+v", snap)
	}
	if gw.pushes != 0 {
		t.Fatalf("rejected import must not push")
	}
}

func TestImport_ReplacesAndPushes(t *testing.T) {
	gw := &fakeGateway{doc: smiths()}
	c := newTestController(t, gw)
	doc := `{"familyName":"Joneses","rootPerson":{"serial":9,"name":"J","spouses":[],"children":[]}}`

	res, err := c.Import(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !sameKinds(res.Patches, PatchTree, PatchSync) {
		t.Fatalf("unexpected patches: %v", kinds(res.Patches))
	}
	if gw.pushes != 1 {
		t.Fatalf("expected import to push once, got %d", gw.pushes)
	}
	added, err := c.Add(context.Background(), treepath.Root(), model.RoleChild, fields(t, "name", "K"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.Serial != 10 {
		t.Fatalf("expected serial after imported maximum, got %d", added.Serial)
	}
}

func TestExport(t *testing.T) {
	c := newTestController(t, &fakeGateway{doc: smiths()})
	var buf bytes.Buffer
	name, err := c.Export(&buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "Smiths.json" {
		t.Fatalf("unexpected file name %q", name)
	}
	got, err := store.DecodeFamilyBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("exported document does not re-import: %v", err)
	}
	if got.FamilyName != "Smiths" {
		t.Fatalf("unexpected family name %q", got.FamilyName)
	}
}

func TestPathForSerial(t *testing.T) {
	ft := smiths()
	ft.RootPerson.Children = []model.PersonNode{{Serial: 2, Name: "B"}, {Serial: 3, Name: "C"}}
	c := newTestController(t, &fakeGateway{doc: ft})

	p, err := c.PathForSerial(3)
	if err != nil || p.String() != "root.children[1]" {
		t.Fatalf("unexpected path %s (%v)", p, err)
	}
	if _, err := c.Delete(context.Background(), treepath.MustParse("root.children[0]")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p, err = c.PathForSerial(3)
	if err != nil || p.String() != "root.children[0]" {
		t.Fatalf("serial lookup should follow the shift, got %s (%v)", p, err)
	}
	if _, err := c.PathForSerial(2); !errors.Is(err, treepath.ErrNodeNotFound) {
		t.Fatalf("expected not found for deleted serial, got %v", err)
	}
}

// blockingGateway holds every push until the test sends its outcome.
type blockingGateway struct {
	fakeGateway
	started chan struct{}
	release chan error
}

func newBlockingGateway(doc *model.FamilyTree) *blockingGateway {
	return &blockingGateway{fakeGateway: fakeGateway{doc: doc}, started: make(chan struct{}), release: make(chan error)}
}

func (g *blockingGateway) Push(ctx context.Context, ft *model.FamilyTree) error {
	g.started <- struct{}{}
	if err := <-g.release; err != nil {
		return &syncgw.PersistFailure{Err: err}
	}
	return g.fakeGateway.Push(ctx, ft)
}

type opResult struct {
	res Result
	err error
}

func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s blocked while a push was in flight", what)
	}
}

func childCount(t *testing.T, c *Controller) int {
	t.Helper()
	var n int
	within(t, "Tree", func() {
		tr := c.Tree()
		if sec, ok := tr.Root.FindSection(model.FieldChildren); ok {
			n = sec.Count
		}
	})
	return n
}

func TestAdd_TreeReadableAndPendingWhilePushInFlight(t *testing.T) {
	gw := newBlockingGateway(smiths())
	c := New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithStartExpanded(true))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	f := fields(t, "name", "B")
	out := make(chan opResult, 1)
	go func() {
		res, err := c.Add(context.Background(), treepath.Root(), model.RoleChild, f)
		out <- opResult{res, err}
	}()
	<-gw.started

	var st SyncState
	within(t, "SyncState", func() { st = c.SyncState() })
	if st.Status != SyncPending || st.Label() != "Saving…" {
		t.Fatalf("expected pending while the push is in flight, got %+v", st)
	}
	if n := childCount(t, c); n != 1 {
		t.Fatalf("expected the new child displayed before the push resolves, got %d children", n)
	}
	within(t, "Toggle", func() {
		if _, err := c.Toggle(treepath.Root().Section(model.FieldChildren)); err != nil {
			t.Errorf("Toggle: %v", err)
		}
	})

	gw.release <- nil
	got := <-out
	if got.err != nil {
		t.Fatalf("Add: %v", got.err)
	}
	if got.res.Sync.Status != SyncCommitted || c.SyncState().Status != SyncCommitted {
		t.Fatalf("expected committed after the push, got %+v / %+v", got.res.Sync, c.SyncState())
	}
	if !strings.Contains(string(gw.last), `"name": "B"`) {
		t.Fatalf("pushed document does not contain the new child:\n%s", gw.last)
	}
}

func TestPush_OvertakenResultDoesNotOverwriteNewerChange(t *testing.T) {
	gw := newBlockingGateway(smiths())
	c := New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithStartExpanded(true))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := context.Background()

	fb, fc := fields(t, "name", "B"), fields(t, "name", "C")
	first := make(chan opResult, 1)
	go func() {
		res, err := c.Add(ctx, treepath.Root(), model.RoleChild, fb)
		first <- opResult{res, err}
	}()
	<-gw.started

	second := make(chan opResult, 1)
	go func() {
		res, err := c.Add(ctx, treepath.Root(), model.RoleChild, fc)
		second <- opResult{res, err}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for childCount(t, c) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("second add was not applied while the first push was in flight")
		}
		time.Sleep(5 * time.Millisecond)
	}

	gw.release <- errors.New("store down")
	got := <-first
	if !errors.Is(got.err, syncgw.ErrPersist) {
		t.Fatalf("expected persist failure for the first push, got %v", got.err)
	}
	if got.res.Sync.Status != SyncPending {
		t.Fatalf("an overtaken failure must leave the newer change pending, got %+v", got.res.Sync)
	}

	<-gw.started
	if st := c.SyncState(); st.Status != SyncPending {
		t.Fatalf("expected pending while the second push is in flight, got %+v", st)
	}
	gw.release <- nil
	got = <-second
	if got.err != nil {
		t.Fatalf("second Add: %v", got.err)
	}
	if c.SyncState().Status != SyncCommitted {
		t.Fatalf("expected committed, got %+v", c.SyncState())
	}
	doc := string(gw.last)
	if !strings.Contains(doc, `"name": "B"`) || !strings.Contains(doc, `"name": "C"`) {
		t.Fatalf("last push should carry both children:\n%s", doc)
	}
}

func TestAdd_FirstMemberOpensToggledEmptySection(t *testing.T) {
	c := newTestController(t, &fakeGateway{doc: smiths()})
	sec := treepath.Root().Section(model.FieldChildren)
	if _, err := c.Toggle(sec); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if c.IsExpanded(sec) {
		t.Fatalf("expected the empty section toggled closed")
	}

	res, err := c.Add(context.Background(), treepath.Root(), model.RoleChild, fields(t, "name", "B"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !c.IsExpanded(sec) {
		t.Fatalf("a section created by an add should be expanded")
	}
	card := res.Patches[0].Card
	ds, ok := card.FindSection(model.FieldChildren)
	if !ok || !ds.Expanded || len(ds.Members) != 1 {
		t.Fatalf("expected the new section rendered open with its member: %+v", ds)
	}
}
