// Package directory defines the contract between the sync engine and the
// target directory service.
//
// The engine only ever talks to the Directory interface: single and batch
// existence checks, entity/container/group mutation, membership management,
// and recursive listing under a managed root. The sqldir subpackage provides
// a SQL-backed reference implementation for local development and integration
// tests; production deployments plug in their own adapter.
package directory
