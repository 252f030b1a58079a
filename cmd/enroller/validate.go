package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/enroller/pkg/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file without starting a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s\n", path)
			fmt.Fprintf(out, "  Account:      %s\n", cfg.Credentials)
			fmt.Fprintf(out, "  Course:       %s (%s %s)\n", cfg.Registration.CourseID, cfg.Registration.TermLabel, cfg.Registration.Term)
			fmt.Fprintf(out, "  Artifacts:    %s\n", cfg.Artifacts.Dir)
			fmt.Fprintf(out, "  Error budget: %d\n", cfg.Timing.ToleratedErrors)
			fmt.Fprintf(out, "  Notify:       %t\n", cfg.Notify.Enabled)
			return nil
		},
	}
}
