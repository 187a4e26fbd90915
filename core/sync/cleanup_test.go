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

func deleteActions(keys ...string) []Action {
	var out []Action
	for _, k := range keys {
		out = append(out, Action{Type: ActionDelete, Key: k})
	}
	return out
}

func TestPlanCleanup_PredictsEmptyContainer(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"alice", "bob"}, nil)
	dir.On("GroupExists", mock.Anything, "G-Sales").Return(false, nil)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub}, deleteActions("Alice", "bob"), testRoot, "G-", zap.NewNop())

	if assert.Len(t, actions, 1) {
		assert.Equal(t, ActionDeleteContainer, actions[0].Type)
		assert.Equal(t, sub, actions[0].Path)
	}
}

func TestPlanCleanup_SurvivorKeepsContainer(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"alice", "bob"}, nil)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	assert.Empty(t, actions)
}

func TestPlanCleanup_ProtectedRootExcluded(t *testing.T) {
	dir := new(mocks.Directory)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	assert.Empty(t, actions)
	dir.AssertNotCalled(t, "ListEntityKeys", mock.Anything, mock.Anything)
}

func TestPlanCleanup_DeepestFirst(t *testing.T) {
	sub := "OU=Sales," + testRoot
	deep := "OU=EMEA," + sub
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{}, nil)
	dir.On("ListEntityKeys", mock.Anything, deep).Return([]string{}, nil)
	dir.On("GroupExists", mock.Anything, mock.Anything).Return(false, nil)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub, deep}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	if assert.Len(t, actions, 2) {
		assert.Equal(t, deep, actions[0].Path)
		assert.Equal(t, sub, actions[1].Path)
	}
}

func TestPlanCleanup_EmptyGroupDeleted(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"alice"}, nil)
	dir.On("GroupExists", mock.Anything, "G-Sales").Return(true, nil)
	dir.On("ListGroupMembers", mock.Anything, "G-Sales").Return([]string{"alice"}, nil)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	if assert.Len(t, actions, 2) {
		assert.Equal(t, ActionDeleteContainer, actions[0].Type)
		assert.Equal(t, ActionDeleteGroup, actions[1].Type)
		assert.Equal(t, "G-Sales", actions[1].Group)
	}
}

func TestPlanCleanup_GroupWithOutsideMembersKept(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"alice"}, nil)
	dir.On("GroupExists", mock.Anything, "G-Sales").Return(true, nil)
	dir.On("ListGroupMembers", mock.Anything, "G-Sales").Return([]string{"alice", "external"}, nil)

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	if assert.Len(t, actions, 1) {
		assert.Equal(t, ActionDeleteContainer, actions[0].Type)
	}
}

func TestPlanCleanup_ListFailureKeepsContainer(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("ListEntityKeys", mock.Anything, sub).Return(nil, fmt.Errorf("busy"))

	actions := PlanCleanup(context.Background(), dir,
		[]string{testRoot, sub}, deleteActions("alice"), testRoot, "G-", zap.NewNop())

	assert.Empty(t, actions)
}
