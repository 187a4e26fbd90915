package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalProvisioner creates resources as directories under a mounted base
// path. Share publication and quotas are the host's concern; this backend
// covers deployments where the sync host mounts the home filesystem directly.
type LocalProvisioner struct {
	base string
	log  *zap.Logger
}

// NewLocalProvisioner creates a provisioner rooted at the given base path.
func NewLocalProvisioner(base string, log *zap.Logger) *LocalProvisioner {
	return &LocalProvisioner{base: base, log: log}
}

// ResourceExists checks for the resource directory. The host parameter is
// ignored; the mount point already selects the host.
func (p *LocalProvisioner) ResourceExists(ctx context.Context, host, shareName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(p.base, shareName))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat resource %q: %w", shareName, err)
	}
	return true, nil
}

// Provision creates the resource directory and its sub-directories.
func (p *LocalProvisioner) Provision(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	root := filepath.Join(p.base, req.ShareName)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("failed to create resource %q: %w", req.ShareName, err)
	}
	for _, sub := range req.SubDirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o750); err != nil {
			return fmt.Errorf("failed to create %q in resource %q: %w", sub, req.ShareName, err)
		}
	}

	if req.QuotaMB > 0 {
		// Quotas need host-level tooling; record the intent so operators can
		// apply it out of band.
		p.log.Info("quota not applied by local provisioner",
			zap.String("share", req.ShareName),
			zap.Int("quota_mb", req.QuotaMB),
		)
	}

	p.log.Info("resource provisioned",
		zap.String("share", req.ShareName),
		zap.String("owner", req.Owner),
		zap.String("path", root),
	)
	return nil
}
