package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToString(t *testing.T) {
	t.Parallel()

	m := Empty()
	m.Set("B", "baz")
	m.Set("a", "bar")

	// Keys are uppercase, the output is sorted, dotenv format
	out, err := m.ToString()
	require.NoError(t, err)
	assert.Equal(t, "A=\"bar\"\nB=\"baz\"", out)

	assert.Equal(t, []string{"A=bar", "B=baz"}, m.ToSlice())
}

func TestMapClone(t *testing.T) {
	t.Parallel()

	m := FromMap(map[string]string{"FOO": "1"})
	clone := m.Clone()
	clone.Set("FOO", "2")

	assert.Equal(t, "1", m.Get("FOO"))
	assert.Equal(t, "2", clone.Get("FOO"))
}

func TestMapMerge(t *testing.T) {
	t.Parallel()

	m := FromMap(map[string]string{"FOO": "1", "BAR": "2"})
	delta := FromMap(map[string]string{"FOO": "3", "BAZ": "4"})

	// Without overwrite the existing value is kept
	m.Merge(delta, false)
	assert.Equal(t, "1", m.Get("FOO"))
	assert.Equal(t, "4", m.Get("BAZ"))

	// With overwrite it is replaced
	m.Merge(delta, true)
	assert.Equal(t, "3", m.Get("FOO"))

	m.Unset("BAZ")
	_, found := m.Lookup("BAZ")
	assert.False(t, found)
}
