package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"dirsync/core/config"
	"dirsync/core/logger"
	"dirsync/core/snapshot"
	"dirsync/core/storage"
	"dirsync/core/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// uploadCmd stores a source dataset as a new session snapshot.
var uploadCmd = &cobra.Command{
	Use:   "upload <rows.json>",
	Short: "Upload a source dataset and open a sync session",
	Long: `Upload a source dataset (a JSON array of column-to-value objects) into
session-scoped snapshot storage. The printed session id is later passed to
'sync --session'.

Examples:
  # Upload a dataset exported from the HR system
  dirsync upload people.json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	RootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	rows, err := readRows(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("dataset %q contains no rows", args[0])
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	store := snapshot.NewStore(client, cfg.Storage.Bucket, l)
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	sessionID := snapshot.NewSessionID()
	if err := store.Save(ctx, sessionID, rows); err != nil {
		return err
	}

	l.Info("session opened",
		zap.String("session", sessionID),
		zap.Int("rows", len(rows)),
	)
	fmt.Println(sessionID)
	return nil
}

// readRows parses a JSON array of flat string objects into source rows.
func readRows(path string) ([]sync.SourceRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}

	var rows []sync.SourceRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %q: %w", path, err)
	}
	return rows, nil
}
