package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrder(t *testing.T) {
	set := Build(nil, t.TempDir(), t.TempDir(), t.TempDir())
	require.Len(t, set, 10)

	names := make([]string, len(set))
	for i, d := range set {
		names[i] = d.Name()
	}
	assert.Equal(t, []string{
		"sales", "inventory", "logistics", "hr", "finance",
		"marketing", "support", "procurement", "manufacturing", "quality",
	}, names)
}

func TestLookup(t *testing.T) {
	set := Build(nil, t.TempDir(), t.TempDir(), t.TempDir())

	d, found := Lookup(set, "quality")
	require.True(t, found)
	assert.Equal(t, "quality", d.Name())

	_, found = Lookup(set, "warehouse")
	assert.False(t, found)
}
