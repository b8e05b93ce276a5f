package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock [ref]",
		Short: "Resolve a flake and update its lock file",
		Long: "Resolve a flake and write an updated lock file. Previously locked " +
			"dependencies that still satisfy their declared requirement keep " +
			"their pin; everything else is re-pinned.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return c.app.Lock(cmd.Context(), refArg(args), impureFlag(cmd), output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Lock file destination (defaults to the flake's own directory)")
	return cmd
}
