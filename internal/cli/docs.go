package cli

import (
	"fmt"

	"familytree/internal/docs"

	"github.com/spf13/cobra"
)

type docPage struct {
	Topic    string `json:"topic"`
	Markdown string `json:"markdown"`
}

func (d docPage) Text() string { return d.Markdown }

func newDocsCmd(a *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show on-demand documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, a, map[string]any{"topics": docs.Topics()})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, errUsage("unknown docs topic: %q (run `familytree docs` to list topics)", topic))
			}
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, a, docPage{Topic: topic, Markdown: body})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown")
	return cmd
}
