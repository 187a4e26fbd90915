package sync

import (
	"context"
	"fmt"
	"testing"

	"dirsync/core/directory/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func sourceKeys(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func TestDetectOrphans(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListContainers", mock.Anything, testRoot).Return([]string{sub}, nil)
	dir.On("ListEntityKeys", mock.Anything, testRoot).Return([]string{"alice", "bob"}, nil)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"carol", "dave"}, nil)

	scan := DetectOrphans(context.Background(), dir, sourceKeys("bob", "carol"), testRoot, zap.NewNop())

	assert.Equal(t, []string{testRoot, sub}, scan.Scopes)
	if assert.Len(t, scan.Actions, 2) {
		assert.Equal(t, ActionDelete, scan.Actions[0].Type)
		assert.Equal(t, "alice", scan.Actions[0].Key)
		assert.Equal(t, testRoot, scan.Actions[0].Path)
		assert.Equal(t, "dave", scan.Actions[1].Key)
		assert.Equal(t, sub, scan.Actions[1].Path)
	}
}

func TestDetectOrphans_KeyComparisonIgnoresCase(t *testing.T) {
	dir := new(mocks.Directory)
	dir.On("ListContainers", mock.Anything, testRoot).Return([]string{}, nil)
	dir.On("ListEntityKeys", mock.Anything, testRoot).Return([]string{"Alice"}, nil)

	scan := DetectOrphans(context.Background(), dir, sourceKeys("alice"), testRoot, zap.NewNop())

	assert.Empty(t, scan.Actions)
}

func TestDetectOrphans_NoManagedRoot(t *testing.T) {
	scan := DetectOrphans(context.Background(), new(mocks.Directory), sourceKeys("alice"), "", zap.NewNop())

	if assert.Len(t, scan.Actions, 1) {
		assert.Equal(t, ActionError, scan.Actions[0].Type)
		assert.Contains(t, scan.Actions[0].Message, "no managed root")
	}
	assert.Empty(t, scan.Scopes)
}

func TestDetectOrphans_ListingFailure(t *testing.T) {
	dir := new(mocks.Directory)
	dir.On("ListContainers", mock.Anything, testRoot).Return(nil, fmt.Errorf("size limit exceeded"))

	scan := DetectOrphans(context.Background(), dir, sourceKeys("alice"), testRoot, zap.NewNop())

	if assert.Len(t, scan.Actions, 1) {
		assert.Equal(t, ActionError, scan.Actions[0].Type)
		assert.Contains(t, scan.Actions[0].Message, "size limit exceeded")
	}
	// Cleanup must not run over scopes that were never actually scanned.
	assert.Empty(t, scan.Scopes)
}

func TestDetectOrphans_EntityListingFailure(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListContainers", mock.Anything, testRoot).Return([]string{sub}, nil)
	dir.On("ListEntityKeys", mock.Anything, testRoot).Return(nil, fmt.Errorf("operations error"))

	scan := DetectOrphans(context.Background(), dir, sourceKeys("alice"), testRoot, zap.NewNop())

	if assert.Len(t, scan.Actions, 1) {
		assert.Equal(t, ActionError, scan.Actions[0].Type)
	}
	assert.Empty(t, scan.Scopes)
}
