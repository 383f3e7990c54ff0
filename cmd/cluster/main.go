package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/bootstrap"
	"github.com/skicluster/engine/internal/config"
	"github.com/skicluster/engine/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Batch runner for the ski-area clustering pipeline",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full pass of the clustering pipeline and exit",
	RunE:  runPipeline,
}

func main() {
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) (runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("pipeline: fatal: %v", r)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync()

	app, err := bootstrap.Build(cfg, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer app.Close(log)

	ctx := cmd.Context()
	report, err := app.Pipeline.Run(ctx)
	if err != nil {
		log.Error("pipeline run failed", zap.Error(err))
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
