package provision

import "context"

// Request describes one per-identity resource to provision on a host:
// a directory structure, a host-level share, access rules, and a quota.
type Request struct {
	// Host is the target file host.
	Host string

	// Path is the filesystem path of the resource on the host.
	Path string

	// ShareName is the name of the host-level share to publish.
	ShareName string

	// Owner is the identity that receives full access.
	Owner string

	// SubDirs lists sub-resource directories created inside the resource.
	SubDirs []string

	// QuotaMB is the quota applied to the resource, in megabytes. Zero
	// means no quota.
	QuotaMB int
}

// Provisioner is the contract for the resource provisioning backend. The
// OS-level work (share creation, ACLs, quotas) lives entirely behind this
// interface.
type Provisioner interface {
	// ResourceExists checks whether a named resource already exists on the
	// target host.
	ResourceExists(ctx context.Context, host, shareName string) (bool, error)

	// Provision creates the resource described by the request.
	Provision(ctx context.Context, req Request) error
}
