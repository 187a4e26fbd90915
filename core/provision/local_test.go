package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLocalProvisioner(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvisioner(base, zap.NewNop())
	ctx := context.Background()

	exists, err := p.ResourceExists(ctx, "files01", "jdupont$")
	assert.NoError(t, err)
	assert.False(t, exists)

	err = p.Provision(ctx, Request{
		Host:      "files01",
		ShareName: "jdupont$",
		Owner:     "jdupont",
		SubDirs:   []string{"documents", "desktop"},
		QuotaMB:   1024,
	})
	assert.NoError(t, err)

	exists, err = p.ResourceExists(ctx, "files01", "jdupont$")
	assert.NoError(t, err)
	assert.True(t, exists)

	for _, sub := range []string{"documents", "desktop"} {
		info, err := os.Stat(filepath.Join(base, "jdupont$", sub))
		assert.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLocalProvisioner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewLocalProvisioner(t.TempDir(), zap.NewNop())

	_, err := p.ResourceExists(ctx, "files01", "jdupont$")
	assert.Error(t, err)

	err = p.Provision(ctx, Request{ShareName: "jdupont$"})
	assert.Error(t, err)
}
