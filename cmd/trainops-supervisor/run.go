package main

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"trainops-supervisor/internal/config"
	"trainops-supervisor/internal/logging"
	"trainops-supervisor/internal/status"
	"trainops-supervisor/internal/supervise"
	"trainops-supervisor/internal/telemetry"
)

var (
	runConfigPath string
	runSchemaPath string
	runLocalOnly  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch and supervise the packaged training script",
	Long: "run resolves the training script by convention (train.sh in the " +
		"workspace directory), supervises it, and forwards its output to the " +
		"run's telemetry session.",
	RunE: runSupervisor,
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	logger := logging.New()
	slogCtx := logging.NewContext(context.Background(), logger)

	cfg, err := config.Load(runConfigPath, runSchemaPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(telemetry.ExitInternalFault)
	}

	session := telemetry.SessionFromEnv()
	remote, mirror, cleanup, err := newWriters(cfg, session, runLocalOnly, logger)
	if err != nil {
		logger.Error("writer setup failed", "error", err)
		os.Exit(telemetry.ExitInternalFault)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(slogCtx)
	defer cancel()

	sup := supervise.New(cfg, session, remote, mirror, logger)

	if cfg.StatusAddr != "" {
		srv := status.NewServer(sup)
		go func() {
			logger.Info("status server listening", "component", "status", "addr", cfg.StatusAddr)
			if err := srv.Start(ctx, cfg.StatusAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("status server failed", "component", "status", "error", err)
			}
		}()
	}

	outcome := sup.Run(ctx)
	logger.Info("run finished", "component", "supervisor",
		"outcome", string(outcome.Kind), "exit_code", outcome.ExitCode())

	cleanup()
	os.Exit(outcome.ExitCode())
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVar(&runConfigPath, "config", "config/supervisor.yaml", "Path to supervisor configuration YAML")
		cmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/supervisor.cue", "Path to CUE schema file")
		cmd.Flags().BoolVar(&runLocalOnly, "local-only", false, "Mirror output locally without contacting the remote endpoint")
	}
}
