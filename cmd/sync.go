package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"dirsync/core/config"
	"dirsync/core/database"
	"dirsync/core/directory/sqldir"
	"dirsync/core/logger"
	"dirsync/core/progress"
	"dirsync/core/provision"
	"dirsync/core/snapshot"
	"dirsync/core/storage"
	"dirsync/core/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncSession      string
	syncFile         string
	syncMapping      string
	syncApply        bool
	syncDryRun       bool
	syncYes          bool
	deleteOrphans    bool
	createContainers bool
	manageGroups     bool
	provisionHomes   bool
	provisionBase    string
	parallelPlanning bool
	syncWorkers      int
)

// syncCmd analyzes a session against the directory and optionally applies
// the resulting plan.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Diff a session against the directory and apply the plan",
	Long: `Diff an uploaded session (or a local dataset file) against live directory
state, report the planned actions, and apply them when requested.

Examples:
  # Report only (dry-run)
  dirsync sync --session 4f1c... --mapping mapping.json

  # Apply with interactive confirmation
  dirsync sync --session 4f1c... --mapping mapping.json --apply

  # Full run including orphan deletion, non-interactive
  dirsync sync --session 4f1c... --mapping mapping.json --apply --delete-orphans --yes

  # One-shot from a local file, bypassing snapshot storage
  dirsync sync --file people.json --mapping mapping.json --apply`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSession, "session", "", "Session id of an uploaded snapshot")
	syncCmd.Flags().StringVar(&syncFile, "file", "", "Local dataset file (bypasses snapshot storage)")
	syncCmd.Flags().StringVar(&syncMapping, "mapping", "", "Attribute mapping file (required)")
	syncCmd.Flags().BoolVar(&syncApply, "apply", false, "Apply the plan after reporting it")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Force dry-run (no mutations even with --apply)")
	syncCmd.Flags().BoolVar(&syncYes, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	syncCmd.Flags().BoolVar(&deleteOrphans, "delete-orphans", false, "Delete directory entities absent from the source")
	syncCmd.Flags().BoolVar(&createContainers, "create-containers", false, "Create missing target containers")
	syncCmd.Flags().BoolVar(&manageGroups, "manage-groups", false, "Manage per-container groups and memberships")
	syncCmd.Flags().BoolVar(&provisionHomes, "provision-homes", false, "Provision home resources for new entities")
	syncCmd.Flags().StringVar(&provisionBase, "provision-base", "", "Mounted base path for home provisioning")
	syncCmd.Flags().BoolVar(&parallelPlanning, "parallel", false, "Plan rows under a bounded worker pool")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "Worker pool size (0 selects a default)")
	_ = syncCmd.MarkFlagRequired("mapping")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mapperCfg, err := loadMapping(syncMapping)
	if err != nil {
		return err
	}

	session, err := openSession(ctx, cfg, l)
	if err != nil {
		return err
	}
	l = logger.WithSession(l, session.ID)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	dir := sqldir.New(db)
	if err := dir.Ping(ctx); err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}

	var prov provision.Provisioner
	if provisionHomes {
		if provisionBase == "" {
			return fmt.Errorf("--provision-homes requires --provision-base")
		}
		prov = provision.NewLocalProvisioner(provisionBase, l)
	}

	opts := sync.Options{
		Config:               cfg.Sync,
		AutoCreateContainers: createContainers,
		DeleteOrphans:        deleteOrphans,
		ManageGroups:         manageGroups,
		ProvisionHomes:       provisionHomes,
		ParallelPlanning:     parallelPlanning,
	}
	if syncWorkers > 0 {
		opts.Workers = syncWorkers
	}

	engine := sync.New(dir, prov, progress.NewLogReporter(l), sync.NewMapper(mapperCfg), opts, l)

	l.Info("Planning synchronization", zap.Int("rows", len(session.Rows)))
	analysis, err := engine.Analyze(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to analyze session: %w", err)
	}

	printAnalysisReport(l, analysis)

	if !syncApply {
		l.Info("No actions applied. Use --apply to execute the plan.")
		return nil
	}
	if syncDryRun {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(analysis.Actions) == 0 {
		l.Info("Directory already in sync. Nothing to apply.")
		return nil
	}

	if hasDestructiveActions(analysis.Actions) && !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	l.Info("Applying plan", zap.Int("actions", len(analysis.Actions)))
	result, err := engine.Execute(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to execute plan: %w", err)
	}

	l.Info("Execution finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed),
	)
	for _, w := range result.Warnings {
		l.Warn(w)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d actions failed", result.Failed, result.Attempted)
	}
	return nil
}

// openSession loads the dataset from snapshot storage or a local file.
func openSession(ctx context.Context, cfg *config.Config, l *zap.Logger) (*sync.Session, error) {
	switch {
	case syncSession != "" && syncFile != "":
		return nil, fmt.Errorf("--session and --file are mutually exclusive")
	case syncSession != "":
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		store := snapshot.NewStore(client, cfg.Storage.Bucket, l)
		rows, err := store.Load(ctx, syncSession)
		if err != nil {
			return nil, err
		}
		return &sync.Session{ID: syncSession, Rows: rows}, nil
	case syncFile != "":
		rows, err := readRows(syncFile)
		if err != nil {
			return nil, err
		}
		return &sync.Session{ID: snapshot.NewSessionID(), Rows: rows}, nil
	default:
		return nil, fmt.Errorf("either --session or --file is required")
	}
}

// mappingFile is the on-disk shape of the attribute mapping.
type mappingFile struct {
	IdentityAttribute    string            `json:"identity_attribute"`
	IdentifierAttributes []string          `json:"identifier_attributes"`
	DisplayAttributes    []string          `json:"display_attributes"`
	ContactAttributes    []string          `json:"contact_attributes"`
	Templates            map[string]string `json:"templates"`
	Order                []string          `json:"order"`
}

// loadMapping reads the mapping file into a mapper configuration. Template
// order follows the optional "order" list; unlisted attributes follow in
// lexical order behind it.
func loadMapping(path string) (sync.MapperConfig, error) {
	var cfg sync.MapperConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read mapping %q: %w", path, err)
	}

	var file mappingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse mapping %q: %w", path, err)
	}
	if file.IdentityAttribute == "" {
		return cfg, fmt.Errorf("mapping %q has no identity_attribute", path)
	}

	seen := make(map[string]struct{}, len(file.Templates))
	for _, attr := range file.Order {
		template, ok := file.Templates[attr]
		if !ok {
			return cfg, fmt.Errorf("mapping %q orders unknown attribute %q", path, attr)
		}
		cfg.Templates = append(cfg.Templates, sync.AttributeTemplate{Attribute: attr, Template: template})
		seen[attr] = struct{}{}
	}
	var rest []string
	for attr := range file.Templates {
		if _, ok := seen[attr]; !ok {
			rest = append(rest, attr)
		}
	}
	sort.Strings(rest)
	for _, attr := range rest {
		cfg.Templates = append(cfg.Templates, sync.AttributeTemplate{Attribute: attr, Template: file.Templates[attr]})
	}

	cfg.IdentityAttribute = file.IdentityAttribute
	cfg.IdentifierAttributes = file.IdentifierAttributes
	cfg.DisplayAttributes = file.DisplayAttributes
	cfg.ContactAttributes = file.ContactAttributes
	return cfg, nil
}

// printAnalysisReport prints a formatted plan report using logger.
func printAnalysisReport(l *zap.Logger, analysis *sync.AnalysisResult) {
	s := analysis.Summary

	l.Info("Synchronization plan",
		zap.Int("rows", s.Rows),
		zap.Int("creates", s.Creates),
		zap.Int("updates", s.Updates),
		zap.Int("moves", s.Moves),
		zap.Int("noops", s.NoOps),
		zap.Int("deletes", s.Deletes),
		zap.Int("container_creates", s.ContainerCreates),
		zap.Int("container_deletes", s.ContainerDeletes),
		zap.Int("errors", s.Errors),
	)

	if len(analysis.Actions) > 0 {
		// Show sample of actions (max 5 for logger)
		maxShow := 5
		if len(analysis.Actions) < maxShow {
			maxShow = len(analysis.Actions)
		}
		for i := 0; i < maxShow; i++ {
			action := analysis.Actions[i]
			l.Info("Sample action",
				zap.String("type", string(action.Type)),
				zap.String("key", action.Key),
				zap.String("reason", action.Message),
			)
		}
		if len(analysis.Actions) > maxShow {
			l.Info("Additional actions not shown", zap.Int("count", len(analysis.Actions)-maxShow))
		}
	}
}

// hasDestructiveActions reports whether the plan removes anything.
func hasDestructiveActions(actions []sync.Action) bool {
	for _, a := range actions {
		switch a.Type {
		case sync.ActionDelete, sync.ActionDeleteGroup, sync.ActionDeleteContainer:
			return true
		}
	}
	return false
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if syncYes {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
