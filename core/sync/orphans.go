package sync

import (
	"context"
	"fmt"
	"strings"

	"dirsync/core/directory"

	"go.uber.org/zap"
)

// OrphanScan is the outcome of one orphan detection pass.
type OrphanScan struct {
	// Actions holds one Delete per orphan, or a single Error action when the
	// scan could not run.
	Actions []Action

	// Scopes lists the container paths actually scanned, reused by the
	// empty-container cleanup.
	Scopes []string
}

// DetectOrphans computes the set difference between the directory population
// under the managed root and the authoritative source identity keys. A key
// present in the directory but absent from the source becomes a Delete
// action. A missing managed root is a configuration error reported once; a
// directory-listing failure yields a single Error action and an empty
// scanned-scope list; the run never crashes.
func DetectOrphans(ctx context.Context, dir directory.Directory, sourceKeys map[string]struct{}, managedRoot string, log *zap.Logger) OrphanScan {
	if managedRoot == "" {
		return OrphanScan{Actions: []Action{{
			Type:    ActionError,
			Key:     "orphan-scan",
			Message: "no managed root configured; orphan detection skipped",
		}}}
	}

	containers, err := dir.ListContainers(ctx, managedRoot)
	if err != nil {
		log.Warn("container listing failed, skipping orphan detection", zap.Error(err))
		return OrphanScan{Actions: []Action{{
			Type:    ActionError,
			Key:     "orphan-scan",
			Message: fmt.Sprintf("listing containers under %q failed: %v", managedRoot, err),
		}}}
	}

	scopes := append([]string{managedRoot}, containers...)
	var actions []Action
	for _, scope := range scopes {
		keys, err := dir.ListEntityKeys(ctx, scope)
		if err != nil {
			log.Warn("entity listing failed, skipping orphan detection",
				zap.String("scope", scope), zap.Error(err))
			return OrphanScan{Actions: []Action{{
				Type:    ActionError,
				Key:     "orphan-scan",
				Message: fmt.Sprintf("listing entities under %q failed: %v", scope, err),
			}}}
		}
		for _, key := range keys {
			if _, ok := sourceKeys[strings.ToLower(key)]; !ok {
				actions = append(actions, Action{
					Type:    ActionDelete,
					Key:     key,
					Path:    scope,
					Message: "present in directory but absent from source",
				})
			}
		}
	}

	return OrphanScan{Actions: actions, Scopes: scopes}
}
