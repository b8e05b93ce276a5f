package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage flake registry aliases",
	}
	cmd.AddCommand(c.newRegistryListCmd())
	cmd.AddCommand(c.newRegistryAddCmd())
	cmd.AddCommand(c.newRegistryRemoveCmd())
	return cmd
}

func (c *CLI) newRegistryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the merged registry chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := c.app.RegistryList()
			if err != nil {
				return err
			}
			for _, e := range reg.Entries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", e.From.String(), e.To.String())
			}
			return nil
		},
	}
}

func (c *CLI) newRegistryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <alias> <ref>",
		Short: "Add an alias to the user registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.RegistryAdd(args[0], args[1])
		},
	}
}

func (c *CLI) newRegistryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove an alias from the user registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.RegistryRemove(args[0])
		},
	}
}
