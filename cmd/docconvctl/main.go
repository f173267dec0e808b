// Command docconvctl runs the conversion tools on local files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docconv/internal/domain"
	u "docconv/internal/utils"
)

// version is set at build time via ldflags.
var version = "dev"

type rootOptions struct {
	scratchDir string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "docconvctl",
		Short: "Convert, merge, split and protect documents",
		Long: `docconvctl runs the document tools of the docconv service locally.

Each tool is a subcommand named after its slug, for example:

  docconvctl merge -o out.pdf a.pdf b.pdf
  docconvctl split --start 2 --end 3 report.pdf
  docconvctl unlock --password secret locked.pdf`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			u.SetLogLevel(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.scratchDir, "scratch-dir", os.Getenv("DOCCONV_SCRATCH_DIR"), "directory for temporary files (default: system temp dir)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	for _, spec := range domain.Tools() {
		root.AddCommand(newToolCmd(spec, opts))
	}
	root.AddCommand(newToolsCmd(), newPagesCmd())
	return root
}

// exitCode maps an error kind to a process exit status.
func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidRequest:
		return 2
	case domain.KindAuthenticationFailed:
		return 3
	case domain.KindInvalidFormat, domain.KindUnsupportedContent:
		return 4
	default:
		return 1
	}
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docconvctl: %s: %v\n", domain.KindOf(err), err)
		stop()
		os.Exit(exitCode(err))
	}
}
