package mocks

import (
	"context"

	"dirsync/core/directory"

	"github.com/stretchr/testify/mock"
)

// Directory is a mock implementation of directory.Directory
type Directory struct {
	mock.Mock
}

func (m *Directory) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Directory) EntityExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *Directory) FindEntities(ctx context.Context, keys []string) (map[string]directory.Entity, error) {
	args := m.Called(ctx, keys)
	if v, ok := args.Get(0).(map[string]directory.Entity); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) FindEntity(ctx context.Context, key string) (directory.Entity, bool, error) {
	args := m.Called(ctx, key)
	if v, ok := args.Get(0).(directory.Entity); ok {
		return v, args.Bool(1), args.Error(2)
	}
	return directory.Entity{}, args.Bool(1), args.Error(2)
}

func (m *Directory) CreateEntity(ctx context.Context, e directory.Entity) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *Directory) UpdateEntity(ctx context.Context, key string, attrs map[string]string) error {
	args := m.Called(ctx, key, attrs)
	return args.Error(0)
}

func (m *Directory) DeleteEntity(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Directory) MoveEntity(ctx context.Context, key, targetPath string) error {
	args := m.Called(ctx, key, targetPath)
	return args.Error(0)
}

func (m *Directory) EntityContainer(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *Directory) ContainerExists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *Directory) FilterContainers(ctx context.Context, paths []string) (map[string]bool, error) {
	args := m.Called(ctx, paths)
	if v, ok := args.Get(0).(map[string]bool); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) CreateContainer(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *Directory) DeleteContainer(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *Directory) ListContainers(ctx context.Context, root string) ([]string, error) {
	args := m.Called(ctx, root)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) ListEntityKeys(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) GroupExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *Directory) CreateGroup(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *Directory) DeleteGroup(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *Directory) AddGroupMember(ctx context.Context, group, key string) error {
	args := m.Called(ctx, group, key)
	return args.Error(0)
}

func (m *Directory) IsGroupMember(ctx context.Context, group, key string) (bool, error) {
	args := m.Called(ctx, group, key)
	return args.Bool(0), args.Error(1)
}

func (m *Directory) ListGroupMembers(ctx context.Context, group string) ([]string, error) {
	args := m.Called(ctx, group)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
