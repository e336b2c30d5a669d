// Package app owns the loaded family tree, the expansion state and the sync
// state. Every user action goes through a Controller method, which mutates
// the tree, pushes it and returns the display patches a UI must apply.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"familytree/internal/expand"
	"familytree/internal/model"
	"familytree/internal/mutate"
	"familytree/internal/render"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"
)

var ErrNotLoaded = errors.New("no family tree loaded")

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStartExpanded skips the collapse-all that normally follows a load or import.
func WithStartExpanded(v bool) Option {
	return func(c *Controller) { c.startExpanded = v }
}

// Controller serialises all handlers with one mutex, so tree reads and
// mutations never interleave even when called from HTTP goroutines. Pushes
// run outside mu: while a save is in flight the tree stays readable and the
// sync state reads pending.
type Controller struct {
	mu sync.Mutex
	// pushMu orders pushes so an older document never lands after a newer one.
	pushMu sync.Mutex
	// gen counts local changes; only the push that carried the newest change
	// may record committed or failed.
	gen uint64

	gw   syncgw.Gateway
	tree *model.FamilyTree
	exp  *expand.Store
	sync SyncState

	// highSerial is the largest serial handed out or seen since the last load.
	highSerial int

	startExpanded bool
	log           *slog.Logger
	now           func() time.Time
}

func New(gw syncgw.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:   gw,
		exp:  expand.New(),
		sync: SyncState{Status: SyncIdle},
		log:  slog.Default(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result is returned by the mutating operations.
type Result struct {
	Patches []Patch
	// Path is the added or edited node's path; the deleted node's former path.
	Path   treepath.Path
	Serial int
	Sync   SyncState
}

func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree != nil && c.tree.RootPerson != nil
}

// Load fetches the tree from the gateway and replaces the current one.
// On failure the current tree is kept.
func (c *Controller) Load(ctx context.Context) ([]Patch, error) {
	ft, err := c.gw.Fetch(ctx)
	if err == nil && (ft == nil || ft.RootPerson == nil) {
		err = &syncgw.LoadFailure{Err: errors.New("document has no rootPerson")}
	}
	if err != nil {
		c.log.Warn("load family tree", "err", err)
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(ft)
	c.gen++
	c.sync = SyncState{Status: SyncCommitted, At: c.now()}
	c.log.Info("family tree loaded", "family", ft.FamilyName, "people", countPeople(ft.RootPerson))
	return []Patch{c.treePatchLocked(), c.syncPatchLocked()}, nil
}

// Replace installs ft without contacting the gateway.
func (c *Controller) Replace(ft *model.FamilyTree) []Patch {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(ft)
	c.gen++
	return []Patch{c.treePatchLocked()}
}

func (c *Controller) replaceLocked(ft *model.FamilyTree) {
	c.tree = ft
	c.highSerial = mutate.MaxSerial(ft.RootPerson)
	c.exp.Reset()
	if !c.startExpanded {
		c.exp.CollapseAll(ft.RootPerson)
	}
}

// Import replaces the tree with a shape-checked document and pushes it.
// A rejected document leaves the current tree untouched.
func (c *Controller) Import(ctx context.Context, r io.Reader) (Result, error) {
	ft, err := store.DecodeFamily(r)
	if err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	c.replaceLocked(ft)
	c.log.Info("family tree imported", "family", ft.FamilyName, "people", countPeople(ft.RootPerson))
	res := Result{Path: treepath.Root(), Patches: []Patch{c.treePatchLocked()}}
	c.markPendingLocked()
	c.mu.Unlock()
	return c.push(ctx, res)
}

// Export writes the current tree in the export format and returns the
// suggested file name.
func (c *Controller) Export(w io.Writer) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return "", ErrNotLoaded
	}
	b, err := syncgw.Encode(c.tree)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(b); err != nil {
		return "", err
	}
	return store.ExportFileName(c.tree), nil
}

// Add appends a spouse or child below parent.
func (c *Controller) Add(ctx context.Context, parent treepath.Path, role model.Role, fields model.Fields) (Result, error) {
	res, err := c.add(parent, role, fields)
	if err != nil {
		return Result{}, err
	}
	return c.push(ctx, res)
}

func (c *Controller) add(parent treepath.Path, role model.Role, fields model.Fields) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return Result{}, ErrNotLoaded
	}
	ar, err := mutate.AddMemberAbove(c.tree, parent, role, fields, c.highSerial)
	if err != nil {
		return Result{}, err
	}
	c.highSerial = ar.Person.Serial

	res := Result{Path: ar.Path, Serial: ar.Person.Serial}
	parentNode, err := treepath.Resolve(c.tree.RootPerson, parent)
	if err != nil {
		return Result{}, err
	}
	switch {
	case ar.Count == 1:
		// The section did not exist before; the parent card gains it, open
		// even if the empty section had been toggled.
		c.exp.Set(ar.Section, true)
		res.Patches = append(res.Patches, c.cardPatchLocked(parentNode, parent))
	case c.exp.IsExpanded(ar.Section):
		card := render.Card(ar.Person, ar.Path, ar.Path.Depth(), c.exp)
		sec := render.Section(parentNode, ar.Section.Field, parent, parent.Depth(), c.exp)
		res.Patches = append(res.Patches,
			Patch{Kind: PatchSectionAppend, Target: sec.DOMID, Card: &card},
			Patch{Kind: PatchSectionHeader, Target: sec.DOMID, Section: &sec},
		)
	default:
		sec := render.Section(parentNode, ar.Section.Field, parent, parent.Depth(), c.exp)
		res.Patches = append(res.Patches, Patch{Kind: PatchSectionHeader, Target: sec.DOMID, Section: &sec})
	}
	c.log.Info("member added", "path", ar.Path.String(), "serial", ar.Person.Serial, "role", string(role))
	c.markPendingLocked()
	return res, nil
}

// Edit merges fields onto the node at path and re-renders that card only.
func (c *Controller) Edit(ctx context.Context, path treepath.Path, fields model.Fields) (Result, error) {
	res, err := c.edit(path, fields)
	if err != nil {
		return Result{}, err
	}
	return c.push(ctx, res)
}

func (c *Controller) edit(path treepath.Path, fields model.Fields) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return Result{}, ErrNotLoaded
	}
	er, err := mutate.EditMember(c.tree, path, fields)
	if err != nil {
		return Result{}, err
	}
	res := Result{Path: path, Serial: er.Person.Serial}
	res.Patches = append(res.Patches, c.cardPatchLocked(er.Person, path))
	c.log.Info("member edited", "path", path.String(), "serial", er.Person.Serial, "changed", er.Changed)
	c.markPendingLocked()
	return res, nil
}

// Delete removes the node at path with its subtree. The remaining siblings
// are re-rendered because their paths shifted.
func (c *Controller) Delete(ctx context.Context, path treepath.Path) (Result, error) {
	res, err := c.remove(path)
	if err != nil {
		return Result{}, err
	}
	return c.push(ctx, res)
}

func (c *Controller) remove(path treepath.Path) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return Result{}, ErrNotLoaded
	}
	dr, err := mutate.DeleteMember(c.tree, path)
	if err != nil {
		return Result{}, err
	}
	_, last, _ := path.Parent()
	c.exp.Removed(dr.Section, last.Index)
	parentPath := dr.Section.Person
	parentNode, err := treepath.Resolve(c.tree.RootPerson, parentPath)
	if err != nil {
		return Result{}, err
	}

	res := Result{Path: path, Serial: dr.Removed.Serial}
	switch {
	case dr.Count == 0:
		res.Patches = append(res.Patches, c.cardPatchLocked(parentNode, parentPath))
	default:
		sec := render.Section(parentNode, dr.Section.Field, parentPath, parentPath.Depth(), c.exp)
		kind := PatchSectionHeader
		if sec.Expanded {
			kind = PatchSection
		}
		res.Patches = append(res.Patches, Patch{Kind: kind, Target: sec.DOMID, Section: &sec})
	}
	c.log.Info("member deleted", "path", path.String(), "serial", dr.Removed.Serial, "subtree", countPeople(&dr.Removed))
	c.markPendingLocked()
	return res, nil
}

// Toggle flips one section and re-renders it.
func (c *Controller) Toggle(sec treepath.SectionPath) ([]Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return nil, ErrNotLoaded
	}
	n, err := treepath.Resolve(c.tree.RootPerson, sec.Person)
	if err != nil {
		return nil, err
	}
	c.exp.Toggle(sec)
	ds := render.Section(n, sec.Field, sec.Person, sec.Person.Depth(), c.exp)
	return []Patch{{Kind: PatchSection, Target: ds.DOMID, Section: &ds}}, nil
}

func (c *Controller) ExpandAll() ([]Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return nil, ErrNotLoaded
	}
	c.exp.Reset()
	return []Patch{c.treePatchLocked()}, nil
}

func (c *Controller) CollapseAll() ([]Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return nil, ErrNotLoaded
	}
	c.exp.CollapseAll(c.tree.RootPerson)
	return []Patch{c.treePatchLocked()}, nil
}

// Retry pushes the current tree again after a failed save.
func (c *Controller) Retry(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.tree == nil {
		c.mu.Unlock()
		return Result{}, ErrNotLoaded
	}
	c.markPendingLocked()
	c.mu.Unlock()
	return c.push(ctx, Result{Path: treepath.Root()})
}

func (c *Controller) markPendingLocked() {
	c.gen++
	c.sync = SyncState{Status: SyncPending, At: c.now()}
}

// push saves a copy of the newest tree without holding mu. A push that was
// overtaken by a later change leaves the state pending for the push that
// carries that change.
func (c *Controller) push(ctx context.Context, res Result) (Result, error) {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()

	c.mu.Lock()
	gen := c.gen
	doc := c.snapshotLocked()
	c.mu.Unlock()

	err := c.gw.Push(ctx, doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Error("push family tree", "err", err)
	}
	if gen == c.gen {
		if err != nil {
			c.sync = SyncState{Status: SyncFailed, Error: err.Error(), At: c.now()}
		} else {
			c.sync = SyncState{Status: SyncCommitted, At: c.now()}
		}
	}
	res.Sync = c.sync
	res.Patches = append(res.Patches, c.syncPatchLocked())
	return res, err
}

func (c *Controller) SyncState() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync
}

// Tree renders the whole tree with the current expansion state.
func (c *Controller) Tree() render.DisplayTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return render.Tree(c.tree, c.exp)
}

// Card renders the card at path.
func (c *Controller) Card(path treepath.Path) (render.DisplayCard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return render.DisplayCard{}, ErrNotLoaded
	}
	n, err := treepath.Resolve(c.tree.RootPerson, path)
	if err != nil {
		return render.DisplayCard{}, err
	}
	return render.Card(n, path, path.Depth(), c.exp), nil
}

// Person returns a copy of the node at path, e.g. to prefill an edit form.
func (c *Controller) Person(path treepath.Path) (model.PersonNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return model.PersonNode{}, ErrNotLoaded
	}
	n, err := treepath.Resolve(c.tree.RootPerson, path)
	if err != nil {
		return model.PersonNode{}, err
	}
	return clonePerson(*n), nil
}

// PathForSerial returns the current path of the node with serial.
func (c *Controller) PathForSerial(serial int) (treepath.Path, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return treepath.Path{}, ErrNotLoaded
	}
	p, ok := treepath.FindBySerial(c.tree.RootPerson, serial)
	if !ok {
		return treepath.Path{}, &treepath.NodeNotFoundError{Path: "#" + itoa(serial), Reason: "no person with this serial"}
	}
	return p, nil
}

// Snapshot returns a deep copy of the tree.
func (c *Controller) Snapshot() (*model.FamilyTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return nil, ErrNotLoaded
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) snapshotLocked() *model.FamilyTree {
	if c.tree == nil {
		return nil
	}
	out := &model.FamilyTree{FamilyName: c.tree.FamilyName}
	if c.tree.RootPerson != nil {
		r := clonePerson(*c.tree.RootPerson)
		out.RootPerson = &r
	}
	return out
}

// IsExpanded reports the expansion state of one section.
func (c *Controller) IsExpanded(sec treepath.SectionPath) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exp.IsExpanded(sec)
}

func (c *Controller) treePatchLocked() Patch {
	t := render.Tree(c.tree, c.exp)
	return Patch{Kind: PatchTree, Target: "tree-content", Tree: &t}
}

func (c *Controller) cardPatchLocked(n *model.PersonNode, p treepath.Path) Patch {
	card := render.Card(n, p, p.Depth(), c.exp)
	return Patch{Kind: PatchCard, Target: card.DOMID, Card: &card}
}

func (c *Controller) syncPatchLocked() Patch {
	s := c.sync
	return Patch{Kind: PatchSync, Target: "sync-status", Sync: &s}
}
