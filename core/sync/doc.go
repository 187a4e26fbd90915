// Package sync implements the reconciliation engine that bulk-synchronizes a
// directory population (accounts, containers, groups, and per-account
// resources) with an authoritative tabular snapshot.
//
// The engine works in two phases:
//
// 1. Analyze: diff the snapshot against live directory state and produce a
// minimal, dependency-ordered action list. The planner classifies a primary
// action per row (create, update, move, or an explicitly counted no-op) and
// independently evaluates gated auxiliary actions (group creation, group
// membership, home-resource provisioning). An orphan detector turns
// directory entities absent from the snapshot into deletions, and a cleanup
// pass predicts containers and groups those deletions will leave empty.
//
// 2. Execute: run the ordered action list class-by-class. Parallel-safe
// classes run under a bounded worker pool; container and group mutations run
// sequentially. Failures are isolated per action, deletions re-validate their
// preconditions at execution time, and progress is reported after every
// action.
//
// # Performance
//
// Planning a snapshot of tens of thousands of rows stays fast because all
// directory state is preloaded in two bulk calls (entities by key, container
// existence by path) into an in-memory cache, giving O(1) lookups per row.
// Per-row planning itself can run sequentially or under a bounded pool and
// produces the same action set either way.
//
// # Statelessness
//
// Nothing survives a run. The cache, the action list, and all counters are
// built during Analyze/Execute and returned to the caller; the engine holds
// no cross-run state.
package sync
