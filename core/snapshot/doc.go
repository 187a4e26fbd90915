// Package snapshot persists uploaded source datasets as session-scoped
// objects in bucket storage. Every upload gets its own session id, so
// concurrent runs never observe each other's data.
package snapshot
