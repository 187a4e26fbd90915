package directory

import "context"

// Entity is an immutable per-run snapshot of a directory account.
type Entity struct {
	// Key is the natural identity key correlating the entity with a
	// snapshot row across runs.
	Key string

	// Path is the entity's current container path.
	Path string

	// Attributes holds the entity's directory attributes, keyed lowercase.
	Attributes map[string]string
}

// Directory is the contract the sync engine consumes. Implementations wrap a
// concrete directory service (LDAP, SQL mirror, in-memory fake); the wire
// protocol is their concern, never the engine's.
type Directory interface {
	// Ping verifies the directory is reachable and the bind is valid.
	Ping(ctx context.Context) error

	// EntityExists checks whether an entity with the given key exists.
	EntityExists(ctx context.Context, key string) (bool, error)

	// FindEntities fetches all entities matching the given keys in one
	// round trip. Keys without a match are simply absent from the result.
	FindEntities(ctx context.Context, keys []string) (map[string]Entity, error)

	// FindEntity fetches a single entity by key; ok is false when absent.
	FindEntity(ctx context.Context, key string) (Entity, bool, error)

	// CreateEntity creates a new entity under its Path.
	CreateEntity(ctx context.Context, e Entity) error

	// UpdateEntity overwrites the given attributes on an existing entity.
	UpdateEntity(ctx context.Context, key string, attrs map[string]string) error

	// DeleteEntity removes an entity.
	DeleteEntity(ctx context.Context, key string) error

	// MoveEntity relocates an entity to the target container path.
	MoveEntity(ctx context.Context, key, targetPath string) error

	// EntityContainer returns the container path currently holding the entity.
	EntityContainer(ctx context.Context, key string) (string, error)

	// ContainerExists checks whether a container path exists.
	ContainerExists(ctx context.Context, path string) (bool, error)

	// FilterContainers checks a batch of container paths in one round trip
	// and reports existence per path.
	FilterContainers(ctx context.Context, paths []string) (map[string]bool, error)

	// CreateContainer creates a container at the given path.
	CreateContainer(ctx context.Context, path string) error

	// DeleteContainer removes an empty container.
	DeleteContainer(ctx context.Context, path string) error

	// ListContainers recursively lists all container paths under root,
	// excluding root itself.
	ListContainers(ctx context.Context, root string) ([]string, error)

	// ListEntityKeys lists the keys of all entities directly inside the
	// given container path.
	ListEntityKeys(ctx context.Context, path string) ([]string, error)

	// GroupExists checks whether a group exists.
	GroupExists(ctx context.Context, name string) (bool, error)

	// CreateGroup creates a group.
	CreateGroup(ctx context.Context, name string) error

	// DeleteGroup removes a group.
	DeleteGroup(ctx context.Context, name string) error

	// AddGroupMember adds an entity to a group.
	AddGroupMember(ctx context.Context, group, key string) error

	// IsGroupMember reports whether an entity already belongs to a group.
	IsGroupMember(ctx context.Context, group, key string) (bool, error)

	// ListGroupMembers lists the entity keys belonging to a group.
	ListGroupMembers(ctx context.Context, group string) ([]string, error)
}
