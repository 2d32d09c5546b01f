package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trainops-supervisor",
	Short: "Container entrypoint for packaged training scripts",
	Long: "trainops-supervisor launches the packaged training script, mirrors its " +
		"output to the container log, streams it to the platform's run-log endpoint, " +
		"and exits with a code reflecting the script's outcome.",
	// The container invokes the binary with no arguments; that is the
	// supervisor contract, so the root command runs the supervisor.
	RunE: runSupervisor,
}

// Execute runs the root command. The supervisor's exit code is set inside
// runSupervisor via os.Exit; reaching this error path means cobra itself
// failed (bad flags, unknown subcommand).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(versionCmd)
}
