// Package webtui runs the terminal UI in a browser tab: each websocket
// connection gets its own familytree process on a server-side PTY.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

type ServerConfig struct {
	Addr string
	// Exe is the binary started per session; empty means the running one.
	Exe string
	// Args are passed to Exe before the "tui" subcommand, e.g. --base-url.
	Args   []string
	Logger *slog.Logger
}

type Server struct {
	cfg  ServerConfig
	tmpl *template.Template
	log  *slog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.Exe) == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		cfg.Exe = exe
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl, log: log}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

type terminalVM struct {
	Title  string
	WSPath string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "terminal.html", terminalVM{Title: "Family Tree", WSPath: "/ws"}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sessionArgs is the child command line: the configured args followed by "tui".
func (s *Server) sessionArgs() []string {
	args := make([]string, 0, len(s.cfg.Args)+1)
	for _, a := range s.cfg.Args {
		if a = strings.TrimSpace(a); a != "" {
			args = append(args, a)
		}
	}
	return append(args, "tui")
}
