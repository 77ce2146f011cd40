package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalled returns a Conn without pumps whose buffer holds a single frame.
func stalled(timeout time.Duration) *Conn {
	return &Conn{
		logger:      logging.NewNop(),
		sendTimeout: timeout,
		send:        make(chan []byte, 1),
		done:        make(chan struct{}),
	}
}

func TestPost_WaitsForRoomInFullBuffer(t *testing.T) {
	c := stalled(time.Second)
	ctx := context.Background()
	require.NoError(t, c.Post(ctx, domain.NavigateMessage("/a")))

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-c.send
	}()
	require.NoError(t, c.Post(ctx, domain.NavigateMessage("/b")))

	assert.Contains(t, string(<-c.send), `"/b"`, "order is kept")
}

func TestPost_FullBufferTimesOut(t *testing.T) {
	c := stalled(20 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Post(ctx, domain.NavigateMessage("/a")))

	err := c.Post(ctx, domain.NavigateMessage("/b"))
	assert.ErrorIs(t, err, ErrSendBufferFull)
}

func TestPost_FullBufferHonoursContextAndClose(t *testing.T) {
	c := stalled(time.Minute)
	require.NoError(t, c.Post(context.Background(), domain.NavigateMessage("/a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Post(ctx, domain.NavigateMessage("/b")), context.DeadlineExceeded)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Close()
	}()
	assert.ErrorIs(t, c.Post(context.Background(), domain.NavigateMessage("/c")), domain.ErrClosed)
}
