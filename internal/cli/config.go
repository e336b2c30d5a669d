package cli

import (
	"net/url"
	"strings"

	"familytree/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.familytree/config.json",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the config and where each command will read the tree from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			_, source, err := gateway(a)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, map[string]any{"path": path, "config": cfg, "source": source})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-base-url URL",
		Short: "Set the remote family store URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return writeErr(cmd, errUsage("invalid base URL: %q", args[0]))
			}
			return updateConfig(cmd, a, func(cfg *store.GlobalConfig) { cfg.BaseURL = raw })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-db PATH",
		Short: "Use a local sqlite store by default (empty PATH clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, a, func(cfg *store.GlobalConfig) { cfg.DBPath = strings.TrimSpace(args[0]) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-glyphs unicode|ascii",
		Short: "Select the TUI glyph set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := strings.ToLower(strings.TrimSpace(args[0]))
			if g != "unicode" && g != "ascii" {
				return writeErr(cmd, errUsage("unknown glyph set: %q (want unicode or ascii)", args[0]))
			}
			return updateConfig(cmd, a, func(cfg *store.GlobalConfig) {
				if cfg.TUI == nil {
					cfg.TUI = &store.TUIConfig{}
				}
				cfg.TUI.Glyphs = g
			})
		},
	})
	return cmd
}

func updateConfig(cmd *cobra.Command, a *App, fn func(*store.GlobalConfig)) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	fn(cfg)
	if err := store.SaveConfig(cfg); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, a, cfg)
}
