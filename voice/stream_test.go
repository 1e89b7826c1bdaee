package voice

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberStreamDropsOldest(t *testing.T) {
	t.Parallel()

	stream := NewMemberStream(1, 2, 8)

	stream.Push([]byte("abcdef"))
	stream.Push([]byte("ghij"))

	assert.Equal(t, 8, stream.Len())
	assert.Equal(t, 2, stream.Dropped())

	buf := make([]byte, 16)
	n, err := stream.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "cdefghij", string(buf[:n]))

	stream.Push([]byte("0123456789"))
	assert.Equal(t, 8, stream.Len())
	assert.Equal(t, 4, stream.Dropped())

	n, err = stream.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "23456789", string(buf[:n]))
}

func TestMemberStreamReadBlocksUntilClose(t *testing.T) {
	t.Parallel()

	stream := NewMemberStream(1, 2, 0)

	result := make(chan error, 1)

	go func() {
		_, err := stream.Read(make([]byte, 4))
		result <- err
	}()

	select {
	case <-result:
		t.Fatal("read returned before data or close")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, stream.Close())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("read did not return after close")
	}

	stream.Push([]byte("late"))
	assert.Equal(t, 0, stream.Len())
}

func TestMemberStreamDrainsAfterClose(t *testing.T) {
	t.Parallel()

	stream := NewMemberStream(1, 2, 0)
	stream.Push([]byte("data"))
	require.NoError(t, stream.Close())

	b, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}
