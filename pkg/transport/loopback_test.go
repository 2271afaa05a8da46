package transport_test

import (
	"testing"

	"github.com/stella/vlan-bridge/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackPortSetRoundTrip(t *testing.T) {
	set := transport.NewLoopbackPortSet(3)

	frame := []byte("hello-frame")
	set.InjectRecv(1, frame)

	ready, err := set.Poll()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ready)

	buf := make([]byte, 64)
	n, err := set.Recv(1, buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])

	ready, err = set.Poll()
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestLoopbackPortSetCapturesSends(t *testing.T) {
	set := transport.NewLoopbackPortSet(2)

	require.NoError(t, set.Send(0, []byte("a")))
	require.NoError(t, set.Send(0, []byte("b")))

	sent := set.SentOn(0)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, sent)
	assert.Empty(t, set.SentOn(1))
}

func TestLoopbackPortSetRejectsAfterClose(t *testing.T) {
	set := transport.NewLoopbackPortSet(1)
	require.NoError(t, set.Close())

	err := set.Send(0, []byte("x"))
	assert.ErrorIs(t, err, transport.ErrClosed)
}
