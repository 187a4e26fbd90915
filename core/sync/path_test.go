package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testRoot = "OU=People,DC=example,DC=org"

func TestBuildPath(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		containers []string
		dn         string
	}{
		{
			name: "empty anchors to root",
			raw:  "",
			dn:   testRoot,
		},
		{
			name:       "single segment",
			raw:        "Sales",
			containers: []string{"Sales"},
			dn:         "OU=Sales," + testRoot,
		},
		{
			name:       "nested segments reverse to leaf first",
			raw:        "Sales/EMEA/France",
			containers: []string{"France", "EMEA", "Sales"},
			dn:         "OU=France,OU=EMEA,OU=Sales," + testRoot,
		},
		{
			name:       "backslash separators",
			raw:        `Sales\EMEA`,
			containers: []string{"EMEA", "Sales"},
			dn:         "OU=EMEA,OU=Sales," + testRoot,
		},
		{
			name:       "surrounding whitespace trimmed",
			raw:        "  Sales / EMEA  ",
			containers: []string{"EMEA", "Sales"},
			dn:         "OU=EMEA,OU=Sales," + testRoot,
		},
		{
			name:       "qualified value keeps components verbatim",
			raw:        "ou=EMEA,ou=Sales,dc=legacy,dc=net",
			containers: []string{"EMEA", "Sales"},
			dn:         "OU=EMEA,OU=Sales," + testRoot,
		},
		{
			name: "qualified bare root",
			raw:  testRoot,
			dn:   testRoot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPath(tt.raw, testRoot)
			assert.Equal(t, tt.containers, p.Containers)
			assert.Equal(t, tt.dn, p.DN())
		})
	}
}

// Re-parsing a rendered path must yield the identical path.
func TestBuildPath_Idempotent(t *testing.T) {
	for _, raw := range []string{"", "Sales", "Sales/EMEA/France", "ou=X,dc=legacy,dc=net"} {
		once := BuildPath(raw, testRoot)
		twice := BuildPath(once.DN(), testRoot)
		assert.Equal(t, once.DN(), twice.DN(), "raw %q", raw)
	}
}

func TestPath_LeafAndDepth(t *testing.T) {
	p := BuildPath("Sales/EMEA", testRoot)
	assert.Equal(t, "EMEA", p.Leaf())
	assert.Equal(t, 2, p.Depth())

	bare := BuildPath("", testRoot)
	assert.Equal(t, "", bare.Leaf())
	assert.Equal(t, 0, bare.Depth())
}

func TestPathDepthAndLeafName(t *testing.T) {
	dn := "OU=EMEA,OU=Sales," + testRoot
	assert.Equal(t, 3, pathDepth(dn))
	assert.Equal(t, "EMEA", leafName(dn))
	assert.Equal(t, "", leafName("DC=example,DC=org"))
}

func TestPathsEqual(t *testing.T) {
	assert.True(t, pathsEqual("ou=sales,"+testRoot, "OU=Sales,"+testRoot))
	assert.False(t, pathsEqual("OU=Sales,"+testRoot, testRoot))
}
