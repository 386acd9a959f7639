package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the environments the current selection resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			selection, _ := cmd.Flags().GetStringArray("env")

			plan, err := c.app.List(configPath, selection)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, env := range plan {
				_, _ = fmt.Fprintln(out, env.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayP("env", "e", nil, "Environments to resolve instead of the configured envlist (repeatable)")
	return cmd
}
