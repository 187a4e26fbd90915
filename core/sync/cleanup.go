package sync

import (
	"context"
	"sort"
	"strings"

	"dirsync/core/directory"

	"go.uber.org/zap"
)

// PlanCleanup predicts which containers and groups the planned deletions
// will leave empty. Candidates come from the orphan-scan scopes, exclude the
// protected root, and are evaluated deepest first. This is a prediction only
// (nothing has been deleted yet), so the executor re-validates emptiness
// immediately before each of these deletions.
func PlanCleanup(ctx context.Context, dir directory.Directory, scopes []string, deletes []Action, protectedRoot, groupPrefix string, log *zap.Logger) []Action {
	deleted := make(map[string]struct{}, len(deletes))
	for _, a := range deletes {
		if a.Type == ActionDelete {
			deleted[strings.ToLower(a.Key)] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if !pathsEqual(scope, protectedRoot) {
			candidates = append(candidates, scope)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return pathDepth(candidates[i]) > pathDepth(candidates[j])
	})

	var actions []Action
	for _, scope := range candidates {
		keys, err := dir.ListEntityKeys(ctx, scope)
		if err != nil {
			log.Warn("emptiness check failed, keeping container",
				zap.String("scope", scope), zap.Error(err))
			continue
		}
		if !coveredBy(keys, deleted) {
			continue
		}

		actions = append(actions, Action{
			Type:    ActionDeleteContainer,
			Key:     scope,
			Path:    scope,
			Message: "container predicted empty after planned deletions",
		})

		leaf := leafName(scope)
		if leaf == "" {
			continue
		}
		group := groupPrefix + leaf
		exists, err := dir.GroupExists(ctx, group)
		if err != nil || !exists {
			continue
		}
		members, err := dir.ListGroupMembers(ctx, group)
		if err != nil {
			log.Warn("group membership check failed, keeping group",
				zap.String("group", group), zap.Error(err))
			continue
		}
		if coveredBy(members, deleted) {
			actions = append(actions, Action{
				Type:    ActionDeleteGroup,
				Key:     group,
				Group:   group,
				Message: "group predicted empty after planned deletions",
			})
		}
	}

	return actions
}

// coveredBy reports whether every key is part of the planned deletions.
func coveredBy(keys []string, deleted map[string]struct{}) bool {
	for _, k := range keys {
		if _, ok := deleted[strings.ToLower(k)]; !ok {
			return false
		}
	}
	return true
}
