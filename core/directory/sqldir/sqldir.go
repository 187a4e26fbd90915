package sqldir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dirsync/core/directory"

	"gorm.io/gorm"
)

// SQLDirectory implements directory.Directory against a relational mirror of
// the directory tree. Key and path matching relies on the database's
// case-insensitive collation, matching directory-service semantics.
type SQLDirectory struct {
	db *gorm.DB
}

// New creates a SQL-backed directory.
func New(db *gorm.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Ping verifies the underlying database connection.
func (d *SQLDirectory) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// EntityExists checks whether an entity with the given key exists.
func (d *SQLDirectory) EntityExists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&EntityRow{}).
		Where("entity_key = ?", key).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check entity %q: %w", key, err)
	}
	return count > 0, nil
}

// FindEntities fetches all entities matching the given keys in one query.
func (d *SQLDirectory) FindEntities(ctx context.Context, keys []string) (map[string]directory.Entity, error) {
	result := make(map[string]directory.Entity, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var rows []EntityRow
	err := d.db.WithContext(ctx).
		Where("entity_key IN ?", keys).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	for _, row := range rows {
		entity, err := toEntity(row)
		if err != nil {
			return nil, err
		}
		result[entity.Key] = entity
	}
	return result, nil
}

// FindEntity fetches a single entity by key.
func (d *SQLDirectory) FindEntity(ctx context.Context, key string) (directory.Entity, bool, error) {
	var row EntityRow
	err := d.db.WithContext(ctx).
		Where("entity_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return directory.Entity{}, false, nil
	}
	if err != nil {
		return directory.Entity{}, false, fmt.Errorf("failed to query entity %q: %w", key, err)
	}

	entity, err := toEntity(row)
	if err != nil {
		return directory.Entity{}, false, err
	}
	return entity, true, nil
}

// CreateEntity creates a new entity under its Path.
func (d *SQLDirectory) CreateEntity(ctx context.Context, e directory.Entity) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes for %q: %w", e.Key, err)
	}
	row := EntityRow{EntityKey: e.Key, Path: e.Path, Attributes: string(attrs)}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create entity %q: %w", e.Key, err)
	}
	return nil
}

// UpdateEntity overwrites the given attributes on an existing entity,
// preserving attributes not named in attrs.
func (d *SQLDirectory) UpdateEntity(ctx context.Context, key string, attrs map[string]string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row EntityRow
		if err := tx.Where("entity_key = ?", key).First(&row).Error; err != nil {
			return fmt.Errorf("failed to load entity %q: %w", key, err)
		}

		merged := make(map[string]string)
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &merged); err != nil {
				return fmt.Errorf("failed to decode attributes for %q: %w", key, err)
			}
		}
		for k, v := range attrs {
			merged[k] = v
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode attributes for %q: %w", key, err)
		}
		return tx.Model(&EntityRow{}).Where("entity_key = ?", key).
			Update("attributes", string(encoded)).Error
	})
}

// DeleteEntity removes an entity and its group memberships.
func (d *SQLDirectory) DeleteEntity(ctx context.Context, key string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_key = ?", key).Delete(&MembershipRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships of %q: %w", key, err)
		}
		if err := tx.Where("entity_key = ?", key).Delete(&EntityRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete entity %q: %w", key, err)
		}
		return nil
	})
}

// MoveEntity relocates an entity to the target container path.
func (d *SQLDirectory) MoveEntity(ctx context.Context, key, targetPath string) error {
	res := d.db.WithContext(ctx).Model(&EntityRow{}).
		Where("entity_key = ?", key).Update("path", targetPath)
	if res.Error != nil {
		return fmt.Errorf("failed to move entity %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("entity %q not found", key)
	}
	return nil
}

// EntityContainer returns the container path currently holding the entity.
func (d *SQLDirectory) EntityContainer(ctx context.Context, key string) (string, error) {
	var row EntityRow
	err := d.db.WithContext(ctx).Select("path").
		Where("entity_key = ?", key).First(&row).Error
	if err != nil {
		return "", fmt.Errorf("failed to locate entity %q: %w", key, err)
	}
	return row.Path, nil
}

// ContainerExists checks whether a container path exists.
func (d *SQLDirectory) ContainerExists(ctx context.Context, path string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&ContainerRow{}).
		Where("path = ?", path).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check container %q: %w", path, err)
	}
	return count > 0, nil
}

// FilterContainers checks a batch of container paths in one query.
func (d *SQLDirectory) FilterContainers(ctx context.Context, paths []string) (map[string]bool, error) {
	result := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return result, nil
	}
	for _, p := range paths {
		result[p] = false
	}

	var rows []ContainerRow
	err := d.db.WithContext(ctx).Where("path IN ?", paths).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query containers: %w", err)
	}
	for _, row := range rows {
		result[row.Path] = true
	}
	return result, nil
}

// CreateContainer creates a container at the given path.
func (d *SQLDirectory) CreateContainer(ctx context.Context, path string) error {
	row := ContainerRow{Path: path}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create container %q: %w", path, err)
	}
	return nil
}

// DeleteContainer removes a container row. Emptiness is the caller's
// responsibility; the executor re-validates it before calling.
func (d *SQLDirectory) DeleteContainer(ctx context.Context, path string) error {
	if err := d.db.WithContext(ctx).Where("path = ?", path).Delete(&ContainerRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete container %q: %w", path, err)
	}
	return nil
}

// ListContainers recursively lists all container paths under root. A
// container is under root when its path ends with "," + root.
func (d *SQLDirectory) ListContainers(ctx context.Context, root string) ([]string, error) {
	var rows []ContainerRow
	err := d.db.WithContext(ctx).
		Where("path LIKE ?", "%,"+root).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list containers under %q: %w", root, err)
	}

	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		paths = append(paths, row.Path)
	}
	return paths, nil
}

// ListEntityKeys lists the keys of all entities directly inside a container.
func (d *SQLDirectory) ListEntityKeys(ctx context.Context, path string) ([]string, error) {
	var rows []EntityRow
	err := d.db.WithContext(ctx).Select("entity_key").
		Where("path = ?", path).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entities in %q: %w", path, err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.EntityKey)
	}
	return keys, nil
}

// GroupExists checks whether a group exists.
func (d *SQLDirectory) GroupExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&GroupRow{}).
		Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check group %q: %w", name, err)
	}
	return count > 0, nil
}

// CreateGroup creates a group.
func (d *SQLDirectory) CreateGroup(ctx context.Context, name string) error {
	row := GroupRow{Name: name}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create group %q: %w", name, err)
	}
	return nil
}

// DeleteGroup removes a group and its membership rows.
func (d *SQLDirectory) DeleteGroup(ctx context.Context, name string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", name).Delete(&MembershipRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships of %q: %w", name, err)
		}
		if err := tx.Where("name = ?", name).Delete(&GroupRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete group %q: %w", name, err)
		}
		return nil
	})
}

// AddGroupMember adds an entity to a group.
func (d *SQLDirectory) AddGroupMember(ctx context.Context, group, key string) error {
	row := MembershipRow{GroupName: group, EntityKey: key}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to add %q to group %q: %w", key, group, err)
	}
	return nil
}

// IsGroupMember reports whether an entity already belongs to a group.
func (d *SQLDirectory) IsGroupMember(ctx context.Context, group, key string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&MembershipRow{}).
		Where("group_name = ? AND entity_key = ?", group, key).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership of %q in %q: %w", key, group, err)
	}
	return count > 0, nil
}

// ListGroupMembers lists the entity keys belonging to a group.
func (d *SQLDirectory) ListGroupMembers(ctx context.Context, group string) ([]string, error) {
	var rows []MembershipRow
	err := d.db.WithContext(ctx).Select("entity_key").
		Where("group_name = ?", group).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %q: %w", group, err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.EntityKey)
	}
	return keys, nil
}

func toEntity(row EntityRow) (directory.Entity, error) {
	attrs := make(map[string]string)
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
			return directory.Entity{}, fmt.Errorf("failed to decode attributes for %q: %w", row.EntityKey, err)
		}
	}
	return directory.Entity{Key: row.EntityKey, Path: row.Path, Attributes: attrs}, nil
}
