package sqldir

// EntityRow represents the 'entities' table. Attributes are stored as a JSON
// document; the engine treats them as an opaque string map.
type EntityRow struct {
	ID         int    `gorm:"column:id;primaryKey"`
	EntityKey  string `gorm:"column:entity_key;uniqueIndex"`
	Path       string `gorm:"column:path"`
	Attributes string `gorm:"column:attributes"`
}

// TableName overrides the table name for entities.
func (EntityRow) TableName() string {
	return "entities"
}

// ContainerRow represents the 'containers' table.
type ContainerRow struct {
	ID   int    `gorm:"column:id;primaryKey"`
	Path string `gorm:"column:path;uniqueIndex"`
}

// TableName overrides the table name for containers.
func (ContainerRow) TableName() string {
	return "containers"
}

// GroupRow represents the 'groups' table.
type GroupRow struct {
	ID   int    `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex"`
}

// TableName overrides the table name for groups.
func (GroupRow) TableName() string {
	return "directory_groups"
}

// MembershipRow represents the 'memberships' table.
type MembershipRow struct {
	ID        int    `gorm:"column:id;primaryKey"`
	GroupName string `gorm:"column:group_name;index"`
	EntityKey string `gorm:"column:entity_key;index"`
}

// TableName overrides the table name for memberships.
func (MembershipRow) TableName() string {
	return "memberships"
}
