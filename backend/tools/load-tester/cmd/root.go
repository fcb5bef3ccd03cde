package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evgrid/backend/libs/gridclient"
	"evgrid/backend/libs/logging"
	"evgrid/backend/tools/load-tester/internal/loadtest"
)

var (
	opts     loadtest.Options
	savePath string
	noSave   bool
)

var rootCmd = &cobra.Command{
	Use:          "load-tester",
	Short:        "Simulate rush-hour EV charging traffic",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.BaseURL, "url", "http://localhost:5002", "charge request service base URL")
	flags.IntVar(&opts.Requests, "requests", 100, "number of requests to send")
	flags.IntVar(&opts.Concurrency, "concurrent", 10, "number of concurrent users")
	flags.DurationVar(&opts.RampUp, "ramp-up", 60*time.Second, "window over which requests are spread")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per request timeout")
	flags.BoolVar(&opts.StopAll, "stop-all", false, "stop every created session when the run ends")
	flags.StringVar(&savePath, "save", "", "result file (default load_test_results_<timestamp>.json)")
	flags.BoolVar(&noSave, "no-save", false, "do not write a result file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	if opts.Requests <= 0 {
		return fmt.Errorf("--requests must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewLogger("load-tester")
	if err != nil {
		return err
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	runner := loadtest.NewRunner(opts, gridclient.NewDefaultHTTPClient(0), nil, logger)

	status, err := runner.Status(ctx)
	if err != nil {
		logger.Warn("status check failed", zap.Error(err))
	} else {
		logger.Info("system status", zap.Any("status", status))
	}

	results, elapsed, runErr := runner.Run(ctx)
	if runErr != nil {
		logger.Warn("load test interrupted", zap.Error(runErr))
	}
	loadtest.Print(cmd.OutOrStdout(), loadtest.Analyze(results))

	if opts.StopAll {
		stopped, failed := runner.StopAll(context.Background())
		logger.Info("stopped sessions", zap.Int("stopped", stopped), zap.Int("failed", failed))
	}

	if !noSave {
		now := time.Now()
		path := savePath
		if path == "" {
			path = loadtest.DefaultFilename(now)
		}
		if err := loadtest.Save(path, loadtest.NewReport(runID, opts.BaseURL, results, elapsed, now)); err != nil {
			return err
		}
		logger.Info("results saved", zap.String("path", path))
	}

	logger.Info("load test finished", zap.Duration("elapsed", elapsed))
	return nil
}
