package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"familytree/internal/storeserver"
	"familytree/internal/web"
	"familytree/internal/webtui"

	"github.com/spf13/cobra"
)

func newTUICmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal UI (default when no command is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, a)
		},
	}
}

func newWebCmd(a *App) *cobra.Command {
	var addr string
	var open bool
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the family tree web UI",
		Long: strings.TrimSpace(`
Serve the family tree in the browser. Pages are server-rendered; every action
answers with partial updates over server-sent events, so only the cards and
sections that changed are replaced. Other open tabs are refreshed as well.
`),
		Example: strings.TrimSpace(`
# Serve the remote store on localhost
familytree web --addr 127.0.0.1:3335

# Serve a local sqlite store, read-only
familytree --db ./family.db web --read-only
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errUsage("web: missing --addr"))
			}
			log := logger(cmd, a, true)
			ctl, err := newController(a, log)
			if err != nil {
				return writeErr(cmd, err)
			}
			// A failed first load is not fatal: the page shows the error and
			// retries on the next request.
			_, _ = ctl.Load(cmd.Context())

			srv, err := web.NewServer(web.ServerConfig{Addr: listenAddr, ReadOnly: readOnly, Logger: log}, ctl)
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + listenAddr + "/"
			_, source, _ := gateway(a)

			opened, openErr := false, ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}
			var hints []string
			if !opened {
				hints = append(hints, "open "+url)
			}
			_ = writeOut(cmd, a, map[string]any{
				"addr":      listenAddr,
				"url":       url,
				"source":    source,
				"readOnly":  readOnly,
				"loaded":    ctl.Loaded(),
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, hints...)
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the UI in your default browser")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Reject every change")
	return cmd
}

func newWebTUICmd(a *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal UI in your browser (PTY + WebSocket, experimental)",
		Long: strings.TrimSpace(`
Run the terminal UI over the web via a server-side PTY and a browser terminal emulator.

Notes:
- Experimental mode (no auth).
- Each browser tab starts a TUI subprocess on the server.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var childArgs []string
			if db := strings.TrimSpace(a.DBPath); db != "" {
				childArgs = append(childArgs, "--db", db)
			}
			if base := strings.TrimSpace(a.BaseURL); base != "" {
				childArgs = append(childArgs, "--base-url", base)
			}
			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:   strings.TrimSpace(addr),
				Args:   childArgs,
				Logger: logger(cmd, a, true),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := srv.Addr()
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}
			_ = writeOut(cmd, a, map[string]any{
				"addr":      listenAddr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, "open http://"+listenAddr)

			fmt.Fprintf(cmd.ErrOrStderr(), "familytree webtui running at http://%s\n", listenAddr)
			return http.ListenAndServe(listenAddr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}

func newServeCmd(a *App) *cobra.Command {
	var addr string
	var keep int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the family store server (GET/POST /family) backed by sqlite",
		Example: strings.TrimSpace(`
# Serve ./family.db for other clients
familytree --db ./family.db serve --addr :3000

# Point a client at it
familytree --base-url http://127.0.0.1:3000/ show
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := strings.TrimSpace(a.DBPath)
			if dbPath == "" {
				return writeErr(cmd, errUsage("serve: missing --db"))
			}
			srv, err := storeserver.New(storeserver.Config{
				Addr:   strings.TrimSpace(addr),
				DBPath: dbPath,
				Keep:   keep,
				Logger: logger(cmd, a, true),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			_ = writeOut(cmd, a, map[string]any{
				"addr":      srv.Addr(),
				"db":        dbPath,
				"keep":      keep,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "Bind address (host:port or :port)")
	cmd.Flags().IntVar(&keep, "keep", 50, "Revisions kept after each write (0 keeps all)")
	return cmd
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
