package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/entrhq/enroller/pkg/logging"
)

// Exit codes of the enroller command.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// exitCode carries a non-zero status out of a command without printing
// anything more.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

// Execute runs the CLI and returns the process exit status.
func Execute(version string) int {
	// terminal logging until a command loads its configuration
	if _, _, err := logging.Setup(logging.Options{}); err != nil {
		slog.Warn("logging setup failed", "error", err)
	}

	root := newRootCmd(version)
	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	slog.Error("command failed", "error", err.Error())
	return exitFailure
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "enroller",
		Short:         "Watch a course for an open seat and register for it",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringP("config", "c", "config.yaml", "Path to configuration file (YAML)")
	root.PersistentFlags().Bool("debug", false, "Enable debug diagnostics")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd(version))
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "enroller %s\n", version)
			return nil
		},
	}
}
