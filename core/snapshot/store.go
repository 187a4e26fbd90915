package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dirsync/core/storage"
	"dirsync/core/sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const objectPrefix = "snapshots/"

// Store reads and writes session snapshots in a storage bucket.
type Store struct {
	client storage.Client
	bucket string
	log    *zap.Logger
}

// NewStore creates a snapshot store bound to a bucket.
func NewStore(client storage.Client, bucket string, log *zap.Logger) *Store {
	return &Store{client: client, bucket: bucket, log: log}
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// EnsureBucket creates the snapshot bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}
	s.log.Info("snapshot bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Save stores the session's rows as a JSON object.
func (s *Store) Save(ctx context.Context, sessionID string, rows []sync.SourceRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := objectName(sessionID)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to store snapshot %q: %w", name, err)
	}

	s.log.Info("snapshot stored",
		zap.String("session", sessionID),
		zap.Int("rows", len(rows)),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Load retrieves the rows of a previously stored session.
func (s *Store) Load(ctx context.Context, sessionID string) ([]sync.SourceRow, error) {
	name := objectName(sessionID)
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %q: %w", name, err)
	}
	defer obj.Close()

	var rows []sync.SourceRow
	if err := json.NewDecoder(obj).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %q: %w", name, err)
	}
	return rows, nil
}

// List returns the session ids of all stored snapshots.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var sessions []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    objectPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, objectPrefix), ".json")
		if id != "" {
			sessions = append(sessions, id)
		}
	}
	return sessions, nil
}

// Delete removes a stored session snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	name := objectName(sessionID)
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", name, err)
	}
	s.log.Info("snapshot deleted", zap.String("session", sessionID))
	return nil
}

func objectName(sessionID string) string {
	return objectPrefix + sessionID + ".json"
}
