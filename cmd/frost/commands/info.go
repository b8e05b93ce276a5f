package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [ref]",
		Short: "Fetch a single flake and print its metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flake, err := c.app.Info(cmd.Context(), refArg(args), impureFlag(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "ID:          %s\n", flake.ID)
			if flake.Description != "" {
				_, _ = fmt.Fprintf(out, "Description: %s\n", flake.Description)
			}
			_, _ = fmt.Fprintf(out, "Ref:         %s\n", flake.Ref.String())
			_, _ = fmt.Fprintf(out, "Path:        %s\n", flake.Path)
			if flake.RevCount != nil {
				_, _ = fmt.Fprintf(out, "Revisions:   %d\n", *flake.RevCount)
			}
			for _, req := range flake.Requires {
				_, _ = fmt.Fprintf(out, "Requires:    %s\n", req.String())
			}
			return nil
		},
	}
}
