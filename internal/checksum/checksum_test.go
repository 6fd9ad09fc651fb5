package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
}

func TestETag(t *testing.T) {
	a, err := ETag(map[string]string{"height": "172"})
	require.NoError(t, err)
	b, err := ETag(map[string]string{"height": "172"})
	require.NoError(t, err)
	c, err := ETag(map[string]string{"height": "175"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 34)
	assert.Equal(t, byte('"'), a[0])

	_, err = ETag(make(chan int))
	assert.Error(t, err)
}
