package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `55d0c0a00000-55d0c0a02000 r--p 00000000 08:01 1311 /usr/bin/cat
55d0c0a02000-55d0c0a07000 r-xp 00002000 08:01 1311 /usr/bin/cat
55d0c1c00000-55d0c1c21000 rw-p 00000000 00:00 0 [heap]
7f1e2a000000-7f1e2a001000 r--p 00000000 08:01 42 /opt/My App/lib.so
garbage line
7ffd1e000000-7ffd1e021000 rw-p 00000000 00:00 0
`

func TestParseMaps(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, mm, 5)

	assert.Equal(t, uint64(0x55d0c0a00000), mm[0].Address)
	assert.Equal(t, uint(0x2000), mm[0].Size)
	assert.Equal(t, "/usr/bin/cat", mm[0].Path)
	assert.True(t, mm[0].IsFileBacked())
	assert.False(t, mm[0].IsExecutable())

	assert.Equal(t, uint64(0x2000), mm[1].Offset)
	assert.True(t, mm[1].IsExecutable())

	assert.Equal(t, "[heap]", mm[2].Path)
	assert.False(t, mm[2].IsFileBacked())
	assert.True(t, mm[2].IsWritable())

	assert.Equal(t, "/opt/My App/lib.so", mm[3].Path)
	assert.Equal(t, "", mm[4].Path)
}

func TestFindRegion(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	SortByAddress(mm)

	r := FindRegion(0x55d0c0a02010, mm)
	require.NotNil(t, r)
	assert.Equal(t, uint64(0x55d0c0a02000), r.Address)

	assert.Nil(t, FindRegion(0x1000, mm))
	assert.Nil(t, FindRegion(0x55d0c0a07000, mm))
}

func TestRegionsForPath(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	cat := RegionsForPath("/usr/bin/cat", mm)
	require.Len(t, cat, 2)
	assert.Equal(t, uint64(0), cat[0].Offset)
	assert.Empty(t, RegionsForPath("/nope", mm))
}
