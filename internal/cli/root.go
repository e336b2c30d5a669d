package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"familytree/internal/app"
	"familytree/internal/format"
	"familytree/internal/store"
	"familytree/internal/syncgw"
	"familytree/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	BaseURL    string
	DBPath     string
	PrettyJSON bool
	Format     string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	a := &App{}

	cmd := &cobra.Command{
		Use:          "familytree",
		Short:        "Family tree editor: CLI, TUI and web UI over one family document",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  familytree

  # Print the whole tree as an outline
  familytree show --format text

  # Add a child below the root person
  familytree add child --path root --name "Ben Smith" --dob 1975-04-02

  # Direct lookup (shortcut for: familytree show --path root.children[0])
  familytree root.children[0]

  # Serve the web UI against a local sqlite store
  familytree --db ./family.db web --addr 127.0.0.1:3335
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, a)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := format.Parse(a.Format); err != nil {
			return errUsage("%v", err)
		}
		if _, err := parseLogLevel(a.LogLevel); err != nil {
			return errUsage("%v", err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&a.BaseURL, "base-url", envOr("FAMILYTREE_BASE_URL", ""), "Remote family store URL (overrides baseUrl in config.json)")
	cmd.PersistentFlags().StringVar(&a.DBPath, "db", envOr("FAMILYTREE_DB", ""), "Use a local sqlite store instead of the remote one")
	cmd.PersistentFlags().BoolVar(&a.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&a.Format, "format", envOr("FAMILYTREE_FORMAT", "json"), "Output format (json|edn|text)")
	cmd.PersistentFlags().StringVar(&a.LogLevel, "log-level", envOr("FAMILYTREE_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newResolveCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newRevisionsCmd(a))
	cmd.AddCommand(newPublishCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newDocsCmd(a))
	cmd.AddCommand(newTUICmd(a))
	cmd.AddCommand(newWebCmd(a))
	cmd.AddCommand(newWebTUICmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

func runTUI(cmd *cobra.Command, a *App) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	opts := tui.Options{Glyphs: envOr("FAMILYTREE_TUI_GLYPHS", "")}
	startExpanded := false
	if cfg.TUI != nil {
		if opts.Glyphs == "" {
			opts.Glyphs = cfg.TUI.Glyphs
		}
		startExpanded = cfg.TUI.StartExpanded
	}
	// The TUI owns the terminal; logs would corrupt the screen.
	log := slog.New(slog.DiscardHandler)
	ctl, err := newController(a, log, app.WithStartExpanded(startExpanded))
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), ctl, opts)
}

// gateway picks the document source: --db, then config dbPath, else the
// remote store at --base-url, FAMILYTREE_BASE_URL, config baseUrl or the default.
func gateway(a *App) (syncgw.Gateway, string, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, "", err
	}
	dbPath := strings.TrimSpace(a.DBPath)
	if dbPath == "" {
		dbPath = strings.TrimSpace(cfg.DBPath)
	}
	if dbPath != "" {
		return store.LocalGateway{Blobs: store.BlobStore{Path: dbPath}}, "sqlite:" + dbPath, nil
	}
	base := strings.TrimSpace(a.BaseURL)
	if base == "" {
		base = strings.TrimSpace(cfg.BaseURL)
	}
	if base == "" {
		base = syncgw.DefaultBaseURL
	}
	return syncgw.NewClient(base), base, nil
}

func newController(a *App, log *slog.Logger, opts ...app.Option) (*app.Controller, error) {
	gw, _, err := gateway(a)
	if err != nil {
		return nil, err
	}
	opts = append([]app.Option{app.WithLogger(log)}, opts...)
	return app.New(gw, opts...), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelWarn, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
	return lvl, nil
}

// logger writes text logs to stderr. Long-running servers default to info,
// one-shot commands to warn.
func logger(cmd *cobra.Command, a *App, serving bool) *slog.Logger {
	lvl, _ := parseLogLevel(a.LogLevel)
	if serving && strings.TrimSpace(a.LogLevel) == "" {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope is the output shape of every command: {"data": ..., "_hints": [...]}.
type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

func (e envelope) Text() string {
	var b strings.Builder
	if t, ok := e.Data.(format.Texter); ok {
		b.WriteString(t.Text())
	} else {
		// No text form: fall back to indented JSON.
		_ = format.WriteJSON(&b, e.Data, true)
	}
	for _, h := range e.Hints {
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("hint: " + h)
	}
	return b.String()
}

func writeOut(cmd *cobra.Command, a *App, v any, hints ...string) error {
	return format.Write(cmd.OutOrStdout(), envelope{Data: v, Hints: hints}, a.Format, a.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
