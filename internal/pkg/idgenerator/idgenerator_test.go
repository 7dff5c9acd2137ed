package idgenerator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdGenerator(t *testing.T) {
	t.Parallel()

	assert.Len(t, RunId(), RunIdLength)
	assert.Len(t, EtcdNamespaceForTest(), EtcdNamespaceForTestLength)
	assert.Len(t, Random(25), 25)

	// IDs contain only the alphabet characters
	for _, c := range RunId() {
		assert.Contains(t, alphabet, string(c))
	}

	// Two generated IDs differ
	assert.NotEqual(t, RunId(), RunId())
}
