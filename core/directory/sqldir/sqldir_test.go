package sqldir

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"dirsync/core/directory"
)

func newTestDirectory(t *testing.T) (*SQLDirectory, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	assert.NoError(t, err)

	return New(gormDB), mock
}

func TestEntityExists(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `entities`").
		WithArgs("jdupont").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := dir.EntityExists(context.Background(), "jdupont")
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEntity(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT \\* FROM `entities` WHERE entity_key = ").
		WithArgs("jdupont", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity_key", "path", "attributes"}).
			AddRow(1, "jdupont", "OU=Sales,DC=example,DC=org", `{"mail":"jean@example.org"}`))

	entity, found, err := dir.FindEntity(context.Background(), "jdupont")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "jdupont", entity.Key)
	assert.Equal(t, "OU=Sales,DC=example,DC=org", entity.Path)
	assert.Equal(t, "jean@example.org", entity.Attributes["mail"])
}

func TestFindEntity_NotFound(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT \\* FROM `entities` WHERE entity_key = ").
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity_key", "path", "attributes"}))

	_, found, err := dir.FindEntity(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestFindEntities(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT \\* FROM `entities` WHERE entity_key IN ").
		WithArgs("jdupont", "mcurie").
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity_key", "path", "attributes"}).
			AddRow(1, "jdupont", "OU=Sales,DC=example,DC=org", `{}`))

	entities, err := dir.FindEntities(context.Background(), []string{"jdupont", "mcurie"})
	assert.NoError(t, err)
	assert.Len(t, entities, 1)
	assert.Contains(t, entities, "jdupont")
}

func TestFindEntities_EmptyKeys(t *testing.T) {
	dir, mock := newTestDirectory(t)

	entities, err := dir.FindEntities(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, entities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEntity(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `entities`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := dir.CreateEntity(context.Background(), directory.Entity{
		Key:        "jdupont",
		Path:       "OU=Sales,DC=example,DC=org",
		Attributes: map[string]string{"mail": "jean@example.org"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveEntity(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `entities` SET `path`=").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := dir.MoveEntity(context.Background(), "jdupont", "OU=HR,DC=example,DC=org")
	assert.NoError(t, err)
}

func TestMoveEntity_NotFound(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `entities` SET `path`=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := dir.MoveEntity(context.Background(), "missing", "OU=HR,DC=example,DC=org")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFilterContainers(t *testing.T) {
	dir, mock := newTestDirectory(t)
	paths := []string{"OU=Sales,DC=example,DC=org", "OU=HR,DC=example,DC=org"}

	mock.ExpectQuery("SELECT \\* FROM `containers` WHERE path IN ").
		WithArgs(paths[0], paths[1]).
		WillReturnRows(sqlmock.NewRows([]string{"id", "path"}).AddRow(1, paths[0]))

	result, err := dir.FilterContainers(context.Background(), paths)
	assert.NoError(t, err)
	assert.True(t, result[paths[0]])
	assert.False(t, result[paths[1]])
}

func TestListEntityKeys(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT `entity_key` FROM `entities` WHERE path = ").
		WithArgs("OU=Sales,DC=example,DC=org").
		WillReturnRows(sqlmock.NewRows([]string{"entity_key"}).
			AddRow("jdupont").AddRow("mcurie"))

	keys, err := dir.ListEntityKeys(context.Background(), "OU=Sales,DC=example,DC=org")
	assert.NoError(t, err)
	assert.Equal(t, []string{"jdupont", "mcurie"}, keys)
}

func TestListContainers(t *testing.T) {
	dir, mock := newTestDirectory(t)
	root := "OU=People,DC=example,DC=org"

	mock.ExpectQuery("SELECT \\* FROM `containers` WHERE path LIKE ").
		WithArgs("%," + root).
		WillReturnRows(sqlmock.NewRows([]string{"id", "path"}).
			AddRow(1, "OU=Sales,"+root))

	paths, err := dir.ListContainers(context.Background(), root)
	assert.NoError(t, err)
	assert.Equal(t, []string{"OU=Sales," + root}, paths)
}

func TestIsGroupMember(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `memberships`").
		WithArgs("G-Sales", "jdupont").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	member, err := dir.IsGroupMember(context.Background(), "G-Sales", "jdupont")
	assert.NoError(t, err)
	assert.False(t, member)
}

func TestDeleteGroup_RemovesMemberships(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `memberships` WHERE group_name = ").
		WithArgs("G-Sales").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `directory_groups` WHERE name = ").
		WithArgs("G-Sales").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := dir.DeleteGroup(context.Background(), "G-Sales")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEntity_MergesAttributes(t *testing.T) {
	dir, mock := newTestDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `entities` WHERE entity_key = ").
		WithArgs("jdupont", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity_key", "path", "attributes"}).
			AddRow(1, "jdupont", "OU=Sales,DC=example,DC=org", `{"mail":"old@example.org","title":"engineer"}`))
	mock.ExpectExec("UPDATE `entities` SET `attributes`=").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := dir.UpdateEntity(context.Background(), "jdupont", map[string]string{"mail": "new@example.org"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
