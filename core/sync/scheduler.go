package sync

import "sort"

// actionRank assigns each action type its fixed priority: containers before
// the entities that live in them, creates before deletes, errors last.
var actionRank = map[ActionType]int{
	ActionCreateContainer:   0,
	ActionCreate:            1,
	ActionUpdate:            2,
	ActionMove:              3,
	ActionCreateGroup:       4,
	ActionProvisionResource: 5,
	ActionAddMembership:     6,
	ActionDelete:            7,
	ActionDeleteGroup:       8,
	ActionDeleteContainer:   9,
	ActionError:             10,
}

// parallelSafeTypes are the action classes whose members are mutually
// independent (separate entities); container and group mutation classes stay
// sequential.
var parallelSafeTypes = map[ActionType]struct{}{
	ActionCreate: {},
	ActionUpdate: {},
	ActionMove:   {},
	ActionDelete: {},
}

// Rank returns the scheduling priority for an action type; unknown types
// sort last.
func Rank(t ActionType) int {
	if r, ok := actionRank[t]; ok {
		return r
	}
	return len(actionRank)
}

// ParallelSafe reports whether members of the action class may run
// concurrently.
func ParallelSafe(t ActionType) bool {
	_, ok := parallelSafeTypes[t]
	return ok
}

// Sort orders the action list by priority rank. The sort is stable: ties
// preserve the original order.
func Sort(actions []Action) []Action {
	sorted := make([]Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Rank(sorted[i].Type) < Rank(sorted[j].Type)
	})
	return sorted
}

// Class is one contiguous run of same-type actions in scheduler order.
type Class struct {
	// Type is the action type shared by all members.
	Type ActionType

	// Parallel marks the class safe for concurrent execution.
	Parallel bool

	// Actions are the class members, in scheduler order.
	Actions []Action
}

// Partition splits a sorted action list into contiguous classes for the
// executor.
func Partition(sorted []Action) []Class {
	var classes []Class
	for _, a := range sorted {
		if n := len(classes); n > 0 && classes[n-1].Type == a.Type {
			classes[n-1].Actions = append(classes[n-1].Actions, a)
			continue
		}
		classes = append(classes, Class{
			Type:     a.Type,
			Parallel: ParallelSafe(a.Type),
			Actions:  []Action{a},
		})
	}
	return classes
}
