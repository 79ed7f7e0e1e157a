package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func TestHubRegisterAndBind(t *testing.T) {
	h := newTestHub(t)
	conn := h.NewConnection(nil)

	h.Register(conn)
	assert.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	h.BindCall(conn, "CA1")
	assert.Equal(t, 1, h.CallCount())
	assert.True(t, h.HasCall("CA1"))

	h.Unregister(conn)
	assert.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, h.HasCall("CA1"))
}

func TestConnectionSendJSON(t *testing.T) {
	h := newTestHub(t)
	conn := h.NewConnection(nil)
	h.Register(conn)

	require.NoError(t, conn.SendJSON(map[string]string{"type": "ack"}))
	assert.JSONEq(t, `{"type":"ack"}`, string(<-conn.Send))
}

func TestConnectionSendJSONBufferFull(t *testing.T) {
	h := newTestHub(t)
	conn := h.NewConnection(nil)
	conn.Send = make(chan []byte, 1)

	require.NoError(t, conn.SendJSON("a"))
	assert.ErrorIs(t, conn.SendJSON("b"), ErrBufferFull)
}

func TestConnectionSendAfterUnregister(t *testing.T) {
	h := newTestHub(t)
	conn := h.NewConnection(nil)
	h.Register(conn)
	h.Unregister(conn)

	// The hub closes the connection under the same lock that removes it.
	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, conn.SendJSON("late"), ErrConnectionClosed)

	select {
	case frame, ok := <-conn.Send:
		assert.False(t, ok, "unexpected frame %s", frame)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubRunClosesConnectionsOnShutdown(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := h.NewConnection(nil)
	h.Register(conn)
	cancel()
	<-done

	assert.Equal(t, 0, h.ConnectionCount())
	assert.ErrorIs(t, conn.SendJSON("x"), ErrConnectionClosed)

	// Unregister after shutdown must not block.
	h.Unregister(conn)
}
