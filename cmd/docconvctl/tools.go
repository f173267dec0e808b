package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docconv/internal/convert"
	"docconv/internal/domain"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE\tINPUTS\tOUTPUT")
			for _, s := range domain.Tools() {
				inputs := strings.Join(s.InputExtensions, ",")
				if s.Multiple {
					inputs += " (many)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Slug, s.Title, inputs, s.Extension)
			}
			return w.Flush()
		},
	}
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <file.pdf>",
		Short: "Print the page count of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return domain.Errorf("docconvctl.read", domain.KindInvalidRequest, "%w", err)
			}
			n, err := convert.PageCount(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
