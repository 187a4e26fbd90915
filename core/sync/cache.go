package sync

import (
	"context"
	"strings"
	"sync"

	"dirsync/core/directory"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// fallbackConcurrency caps the per-key lookups used when a bulk call fails.
const fallbackConcurrency = 4

// Cache is the per-run snapshot of directory state. It is built once at plan
// start from two bulk calls and discarded at run end. After construction it
// is read-mostly: the only legitimate writes during planning are registering
// newly planned containers, groups and identities, which are guarded by a
// mutex so parallel planning stays safe.
type Cache struct {
	entities   map[string]directory.Entity
	containers map[string]struct{}
	resolved   map[int]string

	mu                sync.Mutex
	plannedContainers map[string]struct{}
	plannedGroups     map[string]struct{}
	plannedIdentities map[string]struct{}
}

// BuildCache bulk-fetches the existing population for the candidate identity
// keys and the existence of the candidate container paths. On bulk-call
// failure it falls back to per-key calls under a small fixed concurrency cap,
// logging each failure but never aborting the run: a key that cannot be
// resolved is treated as absent.
func BuildCache(ctx context.Context, dir directory.Directory, keys, paths []string, log *zap.Logger) *Cache {
	c := &Cache{
		entities:          make(map[string]directory.Entity),
		containers:        make(map[string]struct{}),
		resolved:          make(map[int]string),
		plannedContainers: make(map[string]struct{}),
		plannedGroups:     make(map[string]struct{}),
		plannedIdentities: make(map[string]struct{}),
	}

	entities, err := dir.FindEntities(ctx, keys)
	if err != nil {
		log.Warn("bulk entity fetch failed, falling back to per-key lookups", zap.Error(err))
		entities = fallbackEntities(ctx, dir, keys, log)
	}
	for k, e := range entities {
		c.entities[strings.ToLower(k)] = e
	}

	existing, err := dir.FilterContainers(ctx, paths)
	if err != nil {
		log.Warn("bulk container check failed, falling back to per-path lookups", zap.Error(err))
		existing = fallbackContainers(ctx, dir, paths, log)
	}
	for p, ok := range existing {
		if ok {
			c.containers[strings.ToLower(p)] = struct{}{}
		}
	}

	return c
}

func fallbackEntities(ctx context.Context, dir directory.Directory, keys []string, log *zap.Logger) map[string]directory.Entity {
	var mu sync.Mutex
	out := make(map[string]directory.Entity, len(keys))

	g := &errgroup.Group{}
	g.SetLimit(fallbackConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			e, found, err := dir.FindEntity(ctx, key)
			if err != nil {
				// Treated as absent; the planner will propose a create and
				// the directory rejects it if the entity exists after all.
				log.Warn("entity lookup failed", zap.String("key", key), zap.Error(err))
				return nil
			}
			if found {
				mu.Lock()
				out[key] = e
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func fallbackContainers(ctx context.Context, dir directory.Directory, paths []string, log *zap.Logger) map[string]bool {
	var mu sync.Mutex
	out := make(map[string]bool, len(paths))

	g := &errgroup.Group{}
	g.SetLimit(fallbackConcurrency)
	for _, path := range paths {
		g.Go(func() error {
			ok, err := dir.ContainerExists(ctx, path)
			if err != nil {
				log.Warn("container lookup failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[path] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Entity returns the cached entity for the key, if present.
func (c *Cache) Entity(key string) (directory.Entity, bool) {
	e, ok := c.entities[strings.ToLower(key)]
	return e, ok
}

// EntityCount returns the number of cached entities.
func (c *Cache) EntityCount() int {
	return len(c.entities)
}

// ContainerExists reports whether the path exists in the directory or has
// already been planned for creation this run.
func (c *Cache) ContainerExists(path string) bool {
	p := strings.ToLower(path)
	if _, ok := c.containers[p]; ok {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.plannedContainers[p]
	return ok
}

// MarkContainerPlanned registers a container as planned for creation. It
// returns false when the container already exists or was already registered,
// guaranteeing exactly one creation per unique path.
func (c *Cache) MarkContainerPlanned(path string) bool {
	p := strings.ToLower(path)
	if _, ok := c.containers[p]; ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plannedContainers[p]; ok {
		return false
	}
	c.plannedContainers[p] = struct{}{}
	return true
}

// MarkGroupPlanned registers a group as planned for creation, returning
// false on repeat registration.
func (c *Cache) MarkGroupPlanned(name string) bool {
	g := strings.ToLower(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plannedGroups[g]; ok {
		return false
	}
	c.plannedGroups[g] = struct{}{}
	return true
}

// MarkIdentityPlanned registers a newly planned identity, returning false on
// repeat registration.
func (c *Cache) MarkIdentityPlanned(key string) bool {
	k := strings.ToLower(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plannedIdentities[k]; ok {
		return false
	}
	c.plannedIdentities[k] = struct{}{}
	return true
}

// SetResolved stores the duplicate-resolution map (row index to final
// identifier) produced by the disambiguator.
func (c *Cache) SetResolved(ids map[int]string) {
	for i, id := range ids {
		c.resolved[i] = id
	}
}

// Resolved returns the final identifier for a row index.
func (c *Cache) Resolved(row int) string {
	return c.resolved[row]
}
