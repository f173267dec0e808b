package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"docconv/internal/convert"
	"docconv/internal/domain"
	u "docconv/internal/utils"
)

type toolOptions struct {
	output   string
	start    int
	end      int
	password string
}

// newToolCmd builds the subcommand of one tool. Flags are added only for the
// parameters the tool takes.
func newToolCmd(spec domain.ToolSpec, root *rootOptions) *cobra.Command {
	opts := &toolOptions{}
	use := spec.Slug + " <file>"
	args := cobra.ExactArgs(1)
	if spec.Multiple {
		use = spec.Slug + " <file>..."
		args = cobra.MinimumNArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: spec.Title,
		Long: fmt.Sprintf("%s.\n\nAccepted inputs: %v. Writes %s (default %s).",
			spec.Title, spec.InputExtensions, spec.Extension, spec.DefaultFilename),
		Args: args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, spec, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", spec.DefaultFilename, "output file")
	if slices.Contains(spec.Params, "start") {
		cmd.Flags().IntVar(&opts.start, "start", 0, "first page to keep (1-indexed)")
		cmd.Flags().IntVar(&opts.end, "end", 0, "last page to keep (inclusive)")
		_ = cmd.MarkFlagRequired("start")
		_ = cmd.MarkFlagRequired("end")
	}
	if slices.Contains(spec.Params, "password") {
		cmd.Flags().StringVar(&opts.password, "password", "", "document password (default: $DOCCONV_PASSWORD)")
	}
	return cmd
}

func runTool(cmd *cobra.Command, spec domain.ToolSpec, root *rootOptions, opts *toolOptions, args []string) error {
	inputs := make([]domain.Input, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Errorf("docconvctl.read", domain.KindInvalidRequest, "%w", err)
		}
		inputs = append(inputs, domain.Input{Name: filepath.Base(path), Data: data})
	}

	password := opts.password
	if password == "" {
		password = os.Getenv("DOCCONV_PASSWORD")
	}
	req := domain.NewRequest(spec.Tool, inputs, domain.Params{
		StartPage: opts.start,
		EndPage:   opts.end,
		Password:  password,
	})

	start := time.Now()
	res, err := convert.NewDispatcher(root.scratchDir).Convert(cmd.Context(), req)
	if err != nil {
		return err
	}
	u.Info("Conversion finished", "tool", spec.Slug, "inputs", req.InputCount(),
		"bytes_in", req.InputBytes(), "bytes_out", len(res.Data), "duration_ms", time.Since(start).Milliseconds())

	if err := os.WriteFile(opts.output, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", opts.output, len(res.Data))
	return nil
}
