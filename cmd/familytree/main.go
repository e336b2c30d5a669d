package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"familytree/internal/cli"

	"github.com/joho/godotenv"
)

func isPath(s string) bool {
	s = strings.TrimSpace(s)
	return s == "root" || strings.HasPrefix(s, "root.")
}

func rewriteDirectPathLookupArgs(argv []string) []string {
	// Convenience: `familytree root.children[0]` works like
	// `familytree show --path root.children[0]`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv
	// before parsing. Persistent flags may come first, so look for the first
	// positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--base-url":  true,
		"--db":        true,
		"--format":    true,
		"--log-level": true,
	}

	rewrite := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "show", "--path")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isPath(argv[i+1]) {
				out := make([]string, 0, len(argv)+2)
				out = append(out, argv[:i]...)
				out = append(out, "show", "--path")
				return append(out, argv[i+1:]...)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isPath(a) {
			return rewrite(i)
		}
		return argv
	}
	return argv
}

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	os.Args = rewriteDirectPathLookupArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	cmd.SetArgs(os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.ExitCode(err))
	}
}
