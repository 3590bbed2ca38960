package imports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUploadLimited(t *testing.T) {
	t.Run("Within Limit", func(t *testing.T) {
		data, err := ReadUploadLimited(strings.NewReader("hello"), 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("Exactly At Limit", func(t *testing.T) {
		data, err := ReadUploadLimited(strings.NewReader("12345"), 5)
		require.NoError(t, err)
		assert.Len(t, data, 5)
	})

	t.Run("Over Limit", func(t *testing.T) {
		payload := bytes.Repeat([]byte("x"), UploadChunkSize*3)
		_, err := ReadUploadLimited(bytes.NewReader(payload), UploadChunkSize*2)
		assert.ErrorIs(t, err, ErrUploadTooLarge)
	})

	t.Run("Empty Reader", func(t *testing.T) {
		data, err := ReadUploadLimited(strings.NewReader(""), 10)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Negative Limit", func(t *testing.T) {
		_, err := ReadUploadLimited(strings.NewReader("x"), -1)
		assert.Error(t, err)
	})
}

func TestDescribeUploadLimit(t *testing.T) {
	assert.Equal(t, "10 MB", DescribeUploadLimit(UploadMaxBytes))
	assert.Equal(t, "1 MB", DescribeUploadLimit(1024*1024))
	assert.Equal(t, "1536 bytes", DescribeUploadLimit(1536))
	assert.Equal(t, "1 byte", DescribeUploadLimit(1))
}
