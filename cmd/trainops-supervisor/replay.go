package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trainops-supervisor/internal/forwarder"
	"trainops-supervisor/internal/logging"
	"trainops-supervisor/internal/telemetry"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-send a recorded mirror file to the remote endpoint",
	Long: "replay backfills the run-log endpoint from a local mirror file, " +
		"closing any gaps left by an outage during the original run. The " +
		"receiver dedupes by sequence number, so overlap is harmless.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}

		logger := logging.New()
		session := telemetry.SessionFromEnv()

		var writer forwarder.ChunkWriter
		if replayPrintOnly || !session.Remote() {
			writer = forwarder.NewStdoutWriter()
		} else {
			writer = forwarder.NewHTTPWriter(session)
		}

		if err := forwarder.ReplayFile(replayInput, writer, replaySpeed); err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}
		logger.Info("replay finished", "component", "replay", "input", replayInput)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to mirror JSONL file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier (0 = no pacing)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print chunks to STDOUT instead of sending them")
}
