package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSort_FullOrdering(t *testing.T) {
	shuffled := []Action{
		{Type: ActionError, Key: "e"},
		{Type: ActionDelete, Key: "d"},
		{Type: ActionAddMembership, Key: "m"},
		{Type: ActionCreate, Key: "c"},
		{Type: ActionDeleteContainer, Key: "dc"},
		{Type: ActionProvisionResource, Key: "p"},
		{Type: ActionMove, Key: "mv"},
		{Type: ActionDeleteGroup, Key: "dg"},
		{Type: ActionCreateContainer, Key: "cc"},
		{Type: ActionUpdate, Key: "u"},
		{Type: ActionCreateGroup, Key: "cg"},
	}

	sorted := Sort(shuffled)

	expected := []ActionType{
		ActionCreateContainer,
		ActionCreate,
		ActionUpdate,
		ActionMove,
		ActionCreateGroup,
		ActionProvisionResource,
		ActionAddMembership,
		ActionDelete,
		ActionDeleteGroup,
		ActionDeleteContainer,
		ActionError,
	}
	types := make([]ActionType, len(sorted))
	for i, a := range sorted {
		types[i] = a.Type
	}
	assert.Equal(t, expected, types)
}

func TestSort_StableWithinType(t *testing.T) {
	actions := []Action{
		{Type: ActionDelete, Key: "first"},
		{Type: ActionCreate, Key: "a"},
		{Type: ActionCreate, Key: "b"},
		{Type: ActionDelete, Key: "second"},
	}

	sorted := Sort(actions)

	assert.Equal(t, "a", sorted[0].Key)
	assert.Equal(t, "b", sorted[1].Key)
	assert.Equal(t, "first", sorted[2].Key)
	assert.Equal(t, "second", sorted[3].Key)
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	actions := []Action{
		{Type: ActionDelete, Key: "d"},
		{Type: ActionCreate, Key: "c"},
	}

	_ = Sort(actions)

	assert.Equal(t, ActionDelete, actions[0].Type)
}

func TestParallelSafe(t *testing.T) {
	assert.True(t, ParallelSafe(ActionCreate))
	assert.True(t, ParallelSafe(ActionUpdate))
	assert.True(t, ParallelSafe(ActionMove))
	assert.True(t, ParallelSafe(ActionDelete))

	assert.False(t, ParallelSafe(ActionCreateContainer))
	assert.False(t, ParallelSafe(ActionCreateGroup))
	assert.False(t, ParallelSafe(ActionAddMembership))
	assert.False(t, ParallelSafe(ActionDeleteGroup))
	assert.False(t, ParallelSafe(ActionDeleteContainer))
	assert.False(t, ParallelSafe(ActionProvisionResource))
}

func TestPartition(t *testing.T) {
	sorted := Sort([]Action{
		{Type: ActionCreate, Key: "a"},
		{Type: ActionCreate, Key: "b"},
		{Type: ActionCreateContainer, Key: "cc"},
		{Type: ActionDelete, Key: "d"},
	})

	classes := Partition(sorted)

	if assert.Len(t, classes, 3) {
		assert.Equal(t, ActionCreateContainer, classes[0].Type)
		assert.False(t, classes[0].Parallel)
		assert.Equal(t, ActionCreate, classes[1].Type)
		assert.True(t, classes[1].Parallel)
		assert.Len(t, classes[1].Actions, 2)
		assert.Equal(t, ActionDelete, classes[2].Type)
	}
}

func TestRank_UnknownTypeSortsLast(t *testing.T) {
	assert.Greater(t, Rank(ActionType("bogus")), Rank(ActionError))
}
