// Package progress defines the best-effort progress channel the executor
// publishes to. Transport of updates to a UI is a collaborator concern; this
// package only carries the contract plus logger-backed and no-op reporters.
package progress
