package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/frost/internal/core/domain"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [ref]",
		Short: "Resolve a flake and print its dependency tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.app.Resolve(cmd.Context(), refArg(args), impureFlag(cmd))
			if err != nil {
				return err
			}
			renderTree(cmd.OutOrStdout(), deps, 0)
			return nil
		},
	}
}

func renderTree(w io.Writer, deps *domain.Dependencies, depth int) {
	indent := strings.Repeat("  ", depth)
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", indent, deps.Flake.ID, deps.Flake.Ref.String())
	for _, child := range deps.FlakeDeps {
		renderTree(w, child, depth+1)
	}
	for _, nf := range deps.NonFlakeDeps {
		_, _ = fmt.Fprintf(w, "%s  %s: %s (non-flake)\n", indent, nf.Alias, nf.Ref.String())
	}
}
