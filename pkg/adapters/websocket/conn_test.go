package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/framesync/pkg/adapters/websocket"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/guest"
	"github.com/aretw0/framesync/pkg/history"
	"github.com/aretw0/framesync/pkg/host"
	"github.com/aretw0/framesync/pkg/miniapp"
	backend "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, c *websocket.Conn) domain.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Receive():
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return domain.Message{}
	}
}

// echoServer sends every received message back.
func echoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		for msg := range conn.Receive() {
			if err := conn.Post(r.Context(), msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConn_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	ctx := context.Background()

	conn, err := websocket.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Post(ctx, domain.ReadyMessage()))
	require.NoError(t, conn.Post(ctx, domain.RouteChangedMessage("/foo")))

	assert.Equal(t, domain.ReadyMessage(), receive(t, conn))
	assert.Equal(t, domain.RouteChangedMessage("/foo"), receive(t, conn))
}

func TestConn_SkipsInvalidFrames(t *testing.T) {
	srv := echoServer(t)

	raw, _, err := backend.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer raw.Close()

	require.NoError(t, raw.WriteMessage(backend.TextMessage, []byte("not json")))
	require.NoError(t, raw.WriteMessage(backend.TextMessage, []byte(`{"type":"navigate","route":"/foo"}`)))

	_, data, err := raw.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"navigate","route":"/foo"}`, string(data))
}

func TestConn_PostAfterClose(t *testing.T) {
	srv := echoServer(t)
	ctx := context.Background()

	conn, err := websocket.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Post(ctx, domain.ReadyMessage()), domain.ErrClosed)

	select {
	case _, ok := <-conn.Receive():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("receive channel not closed")
	}
}

func TestConn_DialFailure(t *testing.T) {
	_, err := websocket.Dial(context.Background(), "ws://127.0.0.1:1/nowhere")
	assert.Error(t, err)
}

// A host controller in this process drives a guest router served over HTTP.
func TestConn_HostDrivesRemoteGuest(t *testing.T) {
	app := miniapp.Demo()
	rendered := make(chan domain.View, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r)
		if err != nil {
			return
		}
		router := guest.New(app, conn, guest.WithRenderer(rendererFunc(func(v domain.View) {
			rendered <- v
		})))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := router.Start(ctx); err != nil {
			return
		}
		<-conn.Done()
		router.Close()
	}))
	defer srv.Close()

	ctx := context.Background()
	conn, err := websocket.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	hist := history.New("#!/foo")
	ctrl := host.New(hist, conn)
	require.NoError(t, ctrl.Start(ctx))
	defer ctrl.Close()

	select {
	case v := <-rendered:
		assert.Equal(t, domain.Route("/foo"), v.Route)
	case <-time.After(2 * time.Second):
		t.Fatal("guest did not render")
	}

	hist.Assign("#!/")
	select {
	case v := <-rendered:
		assert.Equal(t, domain.RootRoute, v.Route)
	case <-time.After(2 * time.Second):
		t.Fatal("guest did not follow the hash")
	}
	assert.True(t, ctrl.Ready())
}

type rendererFunc func(domain.View)

func (f rendererFunc) Render(_ context.Context, v domain.View) error {
	f(v)
	return nil
}
