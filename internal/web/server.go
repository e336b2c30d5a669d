// Package web serves the family tree in the browser. Pages are rendered with
// html/template from the display model; every action answers with Datastar
// SSE element patches built from the controller's patches, so only the cards
// and sections that changed are replaced.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"familytree/internal/app"

	"github.com/google/uuid"
)

//go:embed templates/*.html
var templatesFS embed.FS

type ServerConfig struct {
	Addr string
	// ReadOnly rejects every mutating request with 403.
	ReadOnly bool
	Logger   *slog.Logger
}

type Server struct {
	cfg  ServerConfig
	ctl  *app.Controller
	tmpl *template.Template
	hub  *tabHub
	log  *slog.Logger
}

func NewServer(cfg ServerConfig, ctl *app.Controller) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if ctl == nil {
		return nil, errors.New("web: controller is nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"notes":    renderNotesHTML,
		"get":      func(route string, kv ...string) template.JS { return action("get", route, false, kv) },
		"post":     func(route string, kv ...string) template.JS { return action("post", route, false, kv) },
		"postForm": func(route string, kv ...string) template.JS { return action("post", route, true, kv) },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, ctl: ctl, tmpl: tmpl, hub: newTabHub(), log: log}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("GET /members/form", s.handleMemberForm)
	mux.HandleFunc("POST /sections/toggle", s.handleToggle)
	mux.HandleFunc("POST /members/add", s.handleAdd)
	mux.HandleFunc("POST /members/edit", s.handleEdit)
	mux.HandleFunc("POST /members/delete", s.handleDelete)
	mux.HandleFunc("POST /expand-all", s.handleExpandAll)
	mux.HandleFunc("POST /collapse-all", s.handleCollapseAll)
	mux.HandleFunc("POST /sync/retry", s.handleRetry)
	mux.HandleFunc("POST /import", s.handleImport)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return errors.New("web: addr is empty")
	}
	hs := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	s.log.Info("web server listening", "addr", s.cfg.Addr, "readOnly", s.cfg.ReadOnly)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// action builds a Datastar action expression. Every request carries the tab
// id so the change is not echoed back to the tab that made it.
func action(method, route string, form bool, kv []string) template.JS {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	u := route
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	opts := "headers: {'X-Tab-Id': $tabId}"
	if form {
		opts = "contentType: 'form', " + opts
	}
	return template.JS("@" + method + "('" + u + "', {" + opts + "})")
}

func newTabID() string { return uuid.NewString() }

func tabID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Tab-Id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("tab"))
}

func pageSignals(tab string, readOnly bool) string {
	b, _ := json.Marshal(map[string]any{"tabId": tab, "readOnly": readOnly})
	return string(b)
}
