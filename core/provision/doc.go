// Package provision defines the contract for the per-identity resource
// provisioning backend (home directories, shares, quotas).
package provision
