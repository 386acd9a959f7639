package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/matrix/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			selection, _ := cmd.Flags().GetStringArray("env")
			parallel, _ := cmd.Flags().GetInt("parallel")
			reportPath, _ := cmd.Flags().GetString("report")
			progress, _ := cmd.Flags().GetBool("progress")

			return c.app.Run(cmd.Context(), app.RunOptions{
				ConfigPath: configPath,
				Selection:  selection,
				Parallel:   parallel,
				ReportPath: reportPath,
				Progress:   progress,
			})
		},
	}
	// StringArray: a template like py-django{30,31} carries commas, so the
	// flag repeats instead of splitting.
	cmd.Flags().StringArrayP("env", "e", nil, "Environments to run instead of the configured envlist (repeatable)")
	cmd.Flags().IntP("parallel", "p", 1, "Number of environments to run concurrently")
	cmd.Flags().String("report", "", "Write the run report to this file as YAML")
	cmd.Flags().Bool("progress", false, "Render per-environment progress instead of raw output")
	return cmd
}
