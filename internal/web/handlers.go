package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/mutate"
	"familytree/internal/render"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/treepath"

	"github.com/starfederation/datastar-go/datastar"
)

const maxImportBytes = 16 << 20

var genders = []string{"Male", "Female", "Other"}

type pageVM struct {
	Tree      render.DisplayTree
	Sync      app.SyncState
	LoadError string
	ReadOnly  bool
	Signals   string
}

type memberFormVM struct {
	Title       string
	Route       string
	Path        string
	Role        string
	RequireName bool
	Fields      model.Fields
	Genders     []string
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	vm := pageVM{ReadOnly: s.cfg.ReadOnly, Signals: pageSignals(newTabID(), s.cfg.ReadOnly)}
	if !s.ctl.Loaded() {
		if _, err := s.ctl.Load(r.Context()); err != nil {
			vm.LoadError = err.Error()
		}
	}
	vm.Tree = s.ctl.Tree()
	vm.Sync = s.ctl.SyncState()

	html, err := s.renderTemplate("page", vm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleEvents streams a full tree patch on connect and again whenever
// another tab changes the tree.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ch, cancel := s.hub.subscribe(tabID(r))
	defer cancel()

	push := func() {
		if !s.ctl.Loaded() {
			return
		}
		t := s.ctl.Tree()
		st := s.ctl.SyncState()
		err := s.applyPatches(sse, []app.Patch{
			{Kind: app.PatchTree, Target: "tree-content", Tree: &t},
			{Kind: app.PatchSync, Target: "sync-status", Sync: &st},
		})
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
		}
	}
	push()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()
	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			push()
		}
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.ctl.Export(&buf)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMemberForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := strings.TrimSpace(q.Get("mode"))
	if mode == "close" {
		_ = s.closeForm(datastar.NewSSE(w, r))
		return
	}
	if s.denyReadOnly(w) {
		return
	}
	path, ok := pathParam(w, r)
	if !ok {
		return
	}
	p, err := s.ctl.Person(path)
	if err != nil {
		s.reject(w, r, err)
		return
	}

	vm := memberFormVM{Path: path.String(), Genders: genders, Fields: model.Fields{}}
	switch mode {
	case "add":
		role, err := model.ParseRole(q.Get("role"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vm.Route, vm.Role, vm.RequireName = "/members/add", string(role), true
		vm.Title = fmt.Sprintf("New %s of %s", role, p.Name)
	case "edit":
		vm.Route, vm.Fields = "/members/edit", model.FieldsOf(&p)
		vm.Title = "Edit " + p.Name
	default:
		http.Error(w, "mode must be add, edit or close", http.StatusBadRequest)
		return
	}

	html, err := s.renderTemplate("member_form", vm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sse := datastar.NewSSE(w, r)
	_ = sse.PatchElements(html, datastar.WithSelector("#member-form"), datastar.WithMode(datastar.ElementPatchModeInner))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sec, err := treepath.ParseSection(r.URL.Query().Get("path"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	patches, err := s.ctl.Toggle(sec)
	s.respond(w, r, patches, err, false)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if s.denyReadOnly(w) {
		return
	}
	path, ok := pathParam(w, r)
	if !ok {
		return
	}
	role, err := model.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields, ok := formFields(w, r)
	if !ok {
		return
	}
	res, err := s.ctl.Add(r.Context(), path, role, fields)
	s.respond(w, r, res.Patches, err, true)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if s.denyReadOnly(w) {
		return
	}
	path, ok := pathParam(w, r)
	if !ok {
		return
	}
	fields, ok := formFields(w, r)
	if !ok {
		return
	}
	res, err := s.ctl.Edit(r.Context(), path, fields)
	s.respond(w, r, res.Patches, err, true)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.denyReadOnly(w) {
		return
	}
	path, ok := pathParam(w, r)
	if !ok {
		return
	}
	res, err := s.ctl.Delete(r.Context(), path)
	s.respond(w, r, res.Patches, err, true)
}

func (s *Server) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	patches, err := s.ctl.ExpandAll()
	s.respond(w, r, patches, err, false)
}

func (s *Server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	patches, err := s.ctl.CollapseAll()
	s.respond(w, r, patches, err, false)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if s.denyReadOnly(w) {
		return
	}
	res, err := s.ctl.Retry(r.Context())
	s.respond(w, r, res.Patches, err, false)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.denyReadOnly(w) {
		return
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer f.Close()
	res, err := s.ctl.Import(r.Context(), f)
	if err == nil {
		s.log.Info("imported family tree", "file", hdr.Filename)
	}
	s.respond(w, r, res.Patches, err, false)
}

// respond writes the controller's patches as one SSE response. An operation
// that was rejected outright produces no patches; its error is shown in the
// flash area. A failed push still carries patches: the change is displayed
// and the user is alerted that it was not saved.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, patches []app.Patch, err error, closeForm bool) {
	if err != nil && len(patches) == 0 {
		s.reject(w, r, err)
		return
	}
	sse := datastar.NewSSE(w, r)
	if perr := s.applyPatches(sse, patches); perr != nil {
		s.log.Error("apply patches", "err", perr)
		_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, perr.Error()))
		return
	}
	_ = s.flash(sse, "")
	if closeForm {
		_ = s.closeForm(sse)
	}
	if errors.Is(err, syncgw.ErrPersist) {
		_ = alert(sse, "Your change is shown but could not be saved: "+err.Error())
	}
	if changesTree(patches) {
		s.hub.broadcast(tabID(r))
	}
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Warn("request rejected", "path", r.URL.Path, "err", err)
	if r.Header.Get("Datastar-Request") != "true" {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	sse := datastar.NewSSE(w, r)
	_ = s.flash(sse, err.Error())
	if errors.Is(err, store.ErrInvalidImport) {
		_ = alert(sse, err.Error())
	}
}

func (s *Server) denyReadOnly(w http.ResponseWriter) bool {
	if !s.cfg.ReadOnly {
		return false
	}
	http.Error(w, "read-only", http.StatusForbidden)
	return true
}

func pathParam(w http.ResponseWriter, r *http.Request) (treepath.Path, bool) {
	p, err := treepath.Parse(r.URL.Query().Get("path"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return treepath.Path{}, false
	}
	return p, true
}

func formFields(w http.ResponseWriter, r *http.Request) (model.Fields, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	in := map[string]string{}
	for _, k := range model.EditableKeys {
		if v, ok := r.PostForm[k]; ok && len(v) > 0 {
			in[k] = v[0]
		}
	}
	fields, err := model.NewFields(in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return fields, true
}

func changesTree(patches []app.Patch) bool {
	for _, p := range patches {
		switch p.Kind {
		case app.PatchCard, app.PatchSection, app.PatchSectionAppend, app.PatchSectionHeader, app.PatchTree:
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	var fe mutate.FieldError
	switch {
	case errors.Is(err, app.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, treepath.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, treepath.ErrInvalidPath),
		errors.Is(err, store.ErrInvalidImport),
		errors.Is(err, mutate.ErrRootDelete),
		errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.Is(err, syncgw.ErrLoad), errors.Is(err, syncgw.ErrPersist):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
