// Package storage provides the object-storage client used to hand snapshots
// between the upload and sync phases.
//
// The Client interface wraps the subset of Minio operations the application
// needs, so tests can substitute the mock implementation in storage/mocks.
package storage
