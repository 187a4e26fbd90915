package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dirsync/core/directory"
	"dirsync/core/provision"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Planner classifies one primary action per mapped row (create, update, move
// or an explicitly counted no-op) and independently evaluates the gated
// auxiliary actions. It supports sequential and bounded-parallel planning;
// both produce the same action set modulo ordering.
type Planner struct {
	dir    directory.Directory
	prov   provision.Provisioner
	mapper *Mapper
	opts   Options
	log    *zap.Logger
}

// NewPlanner creates a planner. prov may be nil when home provisioning is
// disabled.
func NewPlanner(dir directory.Directory, prov provision.Provisioner, mapper *Mapper, opts Options, log *zap.Logger) *Planner {
	opts.setDefaults()
	return &Planner{dir: dir, prov: prov, mapper: mapper, opts: opts, log: log}
}

// Plan runs the per-row logic over the full (already disambiguated) row set
// and returns the planned actions plus the number of explicit no-ops.
func (p *Planner) Plan(ctx context.Context, rows []SourceRow, cache *Cache) ([]Action, int) {
	if p.opts.ParallelPlanning {
		return p.planParallel(ctx, rows, cache)
	}

	var actions []Action
	noops := 0
	for i, row := range rows {
		rowActions, noop := p.planRow(ctx, i, row, cache)
		actions = append(actions, rowActions...)
		if noop {
			noops++
		}
	}
	return actions, noops
}

// planParallel fans the per-row logic out over a bounded worker pool. The
// accumulated action set matches sequential planning modulo ordering.
func (p *Planner) planParallel(ctx context.Context, rows []SourceRow, cache *Cache) ([]Action, int) {
	var (
		mu      sync.Mutex
		actions []Action
		noops   int
	)

	g := &errgroup.Group{}
	g.SetLimit(p.opts.workerCount())
	for i, row := range rows {
		g.Go(func() error {
			rowActions, noop := p.planRow(ctx, i, row, cache)
			mu.Lock()
			actions = append(actions, rowActions...)
			if noop {
				noops++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return actions, noops
}

// planRow performs the per-row classification. The returned bool reports an
// explicit no-op: the entity exists at the right path with no attribute
// drift.
func (p *Planner) planRow(ctx context.Context, idx int, row SourceRow, cache *Cache) ([]Action, bool) {
	var actions []Action

	rec, mapErr := p.mapper.Map(row)

	// Container first: even a row with a broken identity names a location
	// worth materializing for its siblings.
	path := BuildPath(rec.Get(p.opts.LocationAttribute), p.opts.DefaultRoot)
	dn := path.DN()
	if p.opts.AutoCreateContainers && cache.MarkContainerPlanned(dn) {
		actions = append(actions, Action{
			Type:    ActionCreateContainer,
			Key:     dn,
			Path:    dn,
			Message: "container not found in directory",
		})
	}

	if mapErr != nil {
		actions = append(actions, Action{
			Type:    ActionError,
			Key:     fmt.Sprintf("row %d", idx),
			Message: fmt.Sprintf("row %d unusable: %v (source: %v)", idx, mapErr, row),
		})
		return actions, false
	}

	key := cache.Resolved(idx)
	if key == "" {
		key = rec.Get(p.mapper.IdentityAttribute())
	}
	// The resolution map wins over the raw mapping so truncated or suffixed
	// identifiers reach every derived consumer.
	rec.Set(p.mapper.IdentityAttribute(), key)

	noop := false
	existing, found := cache.Entity(key)
	switch {
	case !found:
		cache.MarkIdentityPlanned(key)
		actions = append(actions, Action{
			Type:       ActionCreate,
			Key:        key,
			Path:       dn,
			Attributes: rec,
			Message:    "entity not found in directory",
		})
	case !pathsEqual(existing.Path, dn):
		actions = append(actions, Action{
			Type:       ActionMove,
			Key:        key,
			Path:       dn,
			SourcePath: existing.Path,
			Message:    fmt.Sprintf("entity located at %q, expected %q", existing.Path, dn),
		})
	default:
		changed, diffs := p.diffAttributes(rec, existing.Attributes)
		if len(diffs) > 0 {
			actions = append(actions, Action{
				Type:       ActionUpdate,
				Key:        key,
				Path:       dn,
				Attributes: changed,
				Message:    "attributes differ: " + strings.Join(diffs, "; "),
			})
		} else {
			noop = true
		}
	}

	actions = append(actions, p.planAuxiliary(ctx, key, path, cache)...)
	return actions, noop
}

// diffAttributes compares every mapped attribute against the directory
// snapshot, excluding volatile attributes and the identity key itself.
// Comparison is case-insensitive except for the fixed exception set, and
// blank equals blank. It returns the changed attributes and one description
// per difference.
func (p *Planner) diffAttributes(desired Record, current map[string]string) (Record, []string) {
	volatile := attrSet(p.opts.VolatileAttrs)
	volatile[p.mapper.IdentityAttribute()] = struct{}{}
	caseSensitive := attrSet(p.opts.CaseSensitiveAttrs)

	attrs := make([]string, 0, len(desired))
	for attr := range desired {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	changed := NewRecord()
	var diffs []string
	for _, attr := range attrs {
		if _, skip := volatile[attr]; skip {
			continue
		}
		want := desired[attr]
		have := current[attr]
		if attrValuesEqual(want, have, p.caseSensitiveAttr(caseSensitive, attr)) {
			continue
		}
		changed.Set(attr, want)
		diffs = append(diffs, fmt.Sprintf("%s: dir=%q src=%q", attr, have, want))
	}
	return changed, diffs
}

func (p *Planner) caseSensitiveAttr(set map[string]struct{}, attr string) bool {
	_, ok := set[attr]
	return ok
}

func attrValuesEqual(want, have string, caseSensitive bool) bool {
	want = strings.TrimSpace(want)
	have = strings.TrimSpace(have)
	if want == "" && have == "" {
		return true
	}
	if caseSensitive {
		return want == have
	}
	return strings.EqualFold(want, have)
}

// planAuxiliary evaluates the gated secondary actions for one row. Each is
// re-verified against the external system immediately before being queued
// and neither blocks nor is blocked by the row's primary action. A failed
// verification degrades to skipping the action for this run.
func (p *Planner) planAuxiliary(ctx context.Context, key string, path Path, cache *Cache) []Action {
	var actions []Action

	if p.opts.ManageGroups && path.Leaf() != "" {
		group := p.opts.GroupPrefix + path.Leaf()
		exists, err := p.dir.GroupExists(ctx, group)
		switch {
		case err != nil:
			p.log.Warn("group check failed, skipping group actions for row",
				zap.String("group", group), zap.Error(err))
		default:
			if !exists && cache.MarkGroupPlanned(group) {
				actions = append(actions, Action{
					Type:    ActionCreateGroup,
					Key:     group,
					Group:   group,
					Message: "group not found in directory",
				})
			}
			member, err := p.dir.IsGroupMember(ctx, group, key)
			if err != nil {
				p.log.Warn("membership check failed, skipping membership",
					zap.String("group", group), zap.String("key", key), zap.Error(err))
			} else if !member {
				actions = append(actions, Action{
					Type:    ActionAddMembership,
					Key:     key,
					Group:   group,
					Message: fmt.Sprintf("%s is not a member of %s", key, group),
				})
			}
		}
	}

	if p.opts.ProvisionHomes && p.opts.HomeHost != "" && p.prov != nil {
		share := key + "$"
		exists, err := p.prov.ResourceExists(ctx, p.opts.HomeHost, share)
		switch {
		case err != nil:
			p.log.Warn("resource check failed, skipping provisioning for row",
				zap.String("share", share), zap.Error(err))
		case !exists:
			actions = append(actions, Action{
				Type: ActionProvisionResource,
				Key:  share,
				Provision: &provision.Request{
					Host:      p.opts.HomeHost,
					Path:      strings.TrimRight(p.opts.HomePath, "/") + "/" + key,
					ShareName: share,
					Owner:     key,
					SubDirs:   p.opts.HomeSubDirs,
					QuotaMB:   p.opts.HomeQuotaMB,
				},
				Message: fmt.Sprintf("home resource %s missing on %s", share, p.opts.HomeHost),
			})
		}
	}

	return actions
}
