package disks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPredefinedDiskGeometry(t *testing.T) {
	g, err := GetPredefinedDiskGeometry("1440kb-35")
	require.NoError(t, err)
	assert.Equal(t, "3.5 in", g.FormFactor)
	assert.EqualValues(t, 1474560, g.TotalSizeBytes())
}

func TestGetPredefinedDiskGeometryUnknown(t *testing.T) {
	_, err := GetPredefinedDiskGeometry("does-not-exist")
	assert.Error(t, err)
}

func TestIdentifyBySize(t *testing.T) {
	slug, ok := IdentifyBySize(1474560)
	require.True(t, ok)
	assert.Equal(t, "1440kb-35", slug)

	_, ok = IdentifyBySize(1)
	assert.False(t, ok)
}
