package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/config"
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/deadletter"
)

var ackDeadLetter bool

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters [topic]",
	Short: "Show the oldest dead-lettered batch for a topic",
	Args:  cobra.ExactArgs(1),
	Run:   runDeadLetters,
}

func init() {
	deadLettersCmd.Flags().BoolVar(&ackDeadLetter, "ack", false, "remove the entry after showing it")
	rootCmd.AddCommand(deadLettersCmd)
}

func runDeadLetters(cmd *cobra.Command, args []string) {
	topic := args[0]

	initLogger(slog.LevelInfo)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		fmt.Println("Dead-letter journal is not configured (redis.url is empty)")
		os.Exit(1)
	}

	reporter, err := deadletter.NewReporter(cfg.Redis, "cli")
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = reporter.Close()
	}()

	ctx := context.Background()
	entry, err := reporter.Next(ctx, topic)
	if err != nil {
		slog.Error("Failed to read dead-letter journal", "error", err)
		os.Exit(1)
	}
	if entry == nil {
		fmt.Printf("No dead-lettered batches for topic %s\n", topic)
		return
	}

	fmt.Printf("ID:        %s\n", entry.ID)
	fmt.Printf("Task:      %s\n", entry.TaskID)
	fmt.Printf("Topic:     %s (partition %d)\n", entry.Topic, entry.Partition)
	fmt.Printf("Offsets:   %d..%d (%d records)\n", entry.StartOffset, entry.EndOffset, entry.Records)
	fmt.Printf("Failed at: %s\n", entry.FailedAt)
	fmt.Printf("Cause:\n%s\n", entry.Cause)

	if ackDeadLetter {
		if err := reporter.Ack(ctx, topic, entry.ID); err != nil {
			slog.Error("Failed to ack entry", "error", err)
			os.Exit(1)
		}
		fmt.Println("Entry removed")
	}
}
