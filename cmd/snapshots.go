package cmd

import (
	"context"
	"fmt"

	"dirsync/core/config"
	"dirsync/core/logger"
	"dirsync/core/snapshot"
	"dirsync/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// snapshotsCmd is the parent command for snapshot management.
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage uploaded session snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored session snapshots",
	RunE:  runSnapshotsList,
}

var snapshotsRmCmd = &cobra.Command{
	Use:   "rm <session>",
	Short: "Delete a stored session snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsRm,
}

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsRmCmd)
	RootCmd.AddCommand(snapshotsCmd)
}

func openStore(l *zap.Logger, cfg *config.Config) (*snapshot.Store, error) {
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	return snapshot.NewStore(client, cfg.Storage.Bucket, l), nil
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := openStore(l, cfg)
	if err != nil {
		return err
	}

	sessions, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		l.Info("No snapshots stored")
		return nil
	}
	for _, id := range sessions {
		fmt.Println(id)
	}
	return nil
}

func runSnapshotsRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := openStore(l, cfg)
	if err != nil {
		return err
	}
	return store.Delete(ctx, args[0])
}
