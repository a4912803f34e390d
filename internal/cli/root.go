package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/abroskin/kafka-connect-jdbc/internal/control"
	"github.com/abroskin/kafka-connect-jdbc/internal/core/config"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:     "connect-jdbc",
	Short:   "JDBC sink connector task",
	Long:    `connect-jdbc delivers record batches into a SQL database with bounded retries and adaptive write pacing.`,
	Version: Version,
	Run:     runSink,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func initLogger(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))
}

func runSink(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogger(slog.LevelInfo)
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	initLogger(slogLevel)
	slog.Info("Logger initialized", "level", slogLevel.String(), "version", Version)

	runner, err := control.NewRunner(cfg)
	if err != nil {
		slog.Error("Failed to initialize runner", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runner.Stop(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("Task failed", "error", runErr)
		os.Exit(1)
	}
	slog.Info("Task stopped")
}
