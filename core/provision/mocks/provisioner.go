package mocks

import (
	"context"

	"dirsync/core/provision"

	"github.com/stretchr/testify/mock"
)

// Provisioner is a mock implementation of provision.Provisioner
type Provisioner struct {
	mock.Mock
}

func (m *Provisioner) ResourceExists(ctx context.Context, host, shareName string) (bool, error) {
	args := m.Called(ctx, host, shareName)
	return args.Bool(0), args.Error(1)
}

func (m *Provisioner) Provision(ctx context.Context, req provision.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
