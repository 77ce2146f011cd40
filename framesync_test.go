package framesync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	homeBody = "This is the home route"
	fooBody  = "This is the foo route"
)

func open(t *testing.T, url string, opts ...framesync.Option) *framesync.Page {
	t.Helper()
	page := framesync.New(miniapp.Demo(), opts...)
	require.NoError(t, page.Open(context.Background(), url))
	t.Cleanup(func() { page.Close() })
	return page
}

func body(t *testing.T, page *framesync.Page) string {
	t.Helper()
	snap := page.Snapshot()
	require.NotNil(t, snap.View, "guest has not rendered")
	return snap.View.Body
}

func TestPage_OpensAtRoot(t *testing.T) {
	page := open(t, "http://localhost:3000/")

	snap := page.Snapshot()
	assert.True(t, snap.Ready)
	assert.Equal(t, homeBody, body(t, page))
	assert.Equal(t, domain.RootRoute, snap.Route)
	assert.Equal(t, []string{""}, snap.Entries, "loading must not push history")
}

func TestPage_ClickUpdatesHash(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/")

	require.NoError(t, page.Click(ctx, "Go to foo"))

	snap := page.Snapshot()
	assert.Equal(t, fooBody, body(t, page))
	assert.Equal(t, "#!/foo", snap.Hash)
	assert.Equal(t, 1, snap.Index)
	assert.True(t, snap.Synced())
}

func TestPage_BackAndForward(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/")
	require.NoError(t, page.Click(ctx, "Go to foo"))

	moved, err := page.Back(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, homeBody, body(t, page))
	assert.Equal(t, "", page.Snapshot().Hash)

	moved, err = page.Forward(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, fooBody, body(t, page))
	assert.Equal(t, "#!/foo", page.Snapshot().Hash)

	moved, err = page.Forward(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestPage_TraversalDoesNotPush(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/")
	require.NoError(t, page.Click(ctx, "Go to foo"))
	_, err := page.Back(ctx)
	require.NoError(t, err)

	snap := page.Snapshot()
	assert.Equal(t, []string{"", "#!/foo"}, snap.Entries)
	assert.Equal(t, 0, snap.Index)
}

func TestPage_LoadsRouteFromHash(t *testing.T) {
	page := open(t, "http://localhost:3000/#!/foo")

	snap := page.Snapshot()
	assert.Equal(t, fooBody, body(t, page))
	assert.Equal(t, "#!/foo", snap.Hash)
	assert.Equal(t, []string{"#!/foo"}, snap.Entries)
	assert.Equal(t, 1, snap.Renders, "guest renders the injected route directly")
}

func TestPage_ClickBackToRootThenBack(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/#!/foo")

	require.NoError(t, page.Click(ctx, "Go home"))
	assert.Equal(t, homeBody, body(t, page))
	assert.Equal(t, "#!/", page.Snapshot().Hash)

	_, err := page.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, fooBody, body(t, page))
}

func TestPage_SetHashIsIdempotent(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/")

	changed, err := page.SetHash(ctx, "#!/foo")
	require.NoError(t, err)
	assert.True(t, changed)
	renders := page.Snapshot().Renders

	changed, err = page.SetHash(ctx, "!/foo")
	require.NoError(t, err)
	assert.False(t, changed)

	snap := page.Snapshot()
	assert.Equal(t, fooBody, body(t, page))
	assert.Equal(t, renders, snap.Renders)
	assert.Len(t, snap.Entries, 2)
}

func TestPage_UnknownRouteRendersFallback(t *testing.T) {
	page := open(t, "http://localhost:3000/#!/nope")

	snap := page.Snapshot()
	require.NotNil(t, snap.View)
	assert.True(t, snap.View.NotFound)
	assert.Equal(t, domain.Route("/nope"), snap.Route)
	assert.Equal(t, "#!/nope", snap.Hash)
}

func TestPage_MalformedHashMeansRoot(t *testing.T) {
	page := open(t, "http://localhost:3000/#section")

	assert.Equal(t, homeBody, body(t, page))
	assert.Equal(t, "#section", page.Snapshot().Hash)
}

func TestPage_NavigateGuestToSameRouteIsNoop(t *testing.T) {
	ctx := context.Background()
	page := open(t, "http://localhost:3000/")

	require.NoError(t, page.NavigateGuest(ctx, "/foo"))
	require.NoError(t, page.NavigateGuest(ctx, "/foo"))

	snap := page.Snapshot()
	assert.Equal(t, []string{"", "#!/foo"}, snap.Entries)
	assert.Equal(t, 2, snap.Renders)
}

func TestPage_WithoutReadyStaysUnrendered(t *testing.T) {
	var (
		mu    sync.Mutex
		drops []string
	)
	hooks := domain.LifecycleHooks{
		OnDrop: func(_ context.Context, e *domain.DropEvent) {
			mu.Lock()
			defer mu.Unlock()
			drops = append(drops, e.Reason)
		},
	}
	page := open(t, "http://localhost:3000/#!/foo",
		framesync.WithoutGuestReady(),
		framesync.WithLifecycleHooks(hooks),
	)

	snap := page.Snapshot()
	assert.False(t, snap.Ready)
	assert.Nil(t, snap.View)
	assert.False(t, snap.Synced())

	_, err := page.SetHash(context.Background(), "#!/")
	require.NoError(t, err)
	assert.Nil(t, page.Snapshot().View)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, drops, domain.DropNotReady)
}

func TestPage_ClickBeforeRenderFails(t *testing.T) {
	page := open(t, "http://localhost:3000/", framesync.WithoutGuestReady())

	err := page.Click(context.Background(), "Go to foo")
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestPage_ClickUnknownLink(t *testing.T) {
	page := open(t, "http://localhost:3000/")

	err := page.Click(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestPage_ReadyTimeoutHook(t *testing.T) {
	fired := make(chan time.Duration, 1)
	hooks := domain.LifecycleHooks{
		OnReadyTimeout: func(_ context.Context, e *domain.ReadyTimeoutEvent) {
			fired <- e.Waited
		},
	}
	open(t, "http://localhost:3000/",
		framesync.WithoutGuestReady(),
		framesync.WithReadyTimeout(20*time.Millisecond),
		framesync.WithLifecycleHooks(hooks),
	)

	select {
	case waited := <-fired:
		assert.Equal(t, 20*time.Millisecond, waited)
	case <-time.After(time.Second):
		t.Fatal("ready timeout hook did not fire")
	}
}

func TestPage_RestoreSessionState(t *testing.T) {
	ctx := context.Background()
	first := open(t, "http://localhost:3000/", framesync.WithSessionID("s1"))
	require.NoError(t, first.Click(ctx, "Go to foo"))
	_, err := first.Back(ctx)
	require.NoError(t, err)
	state := first.State()
	require.NoError(t, first.Close())

	restored := open(t, "", framesync.WithSessionState(state))
	snap := restored.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, []string{"", "#!/foo"}, snap.Entries)
	assert.Equal(t, homeBody, body(t, restored))

	moved, err := restored.Forward(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, fooBody, body(t, restored))
}

func TestPage_NotOpen(t *testing.T) {
	page := framesync.New(miniapp.Demo())

	assert.ErrorIs(t, page.Click(context.Background(), "Go to foo"), framesync.ErrNotOpen)
	_, err := page.Back(context.Background())
	assert.ErrorIs(t, err, framesync.ErrNotOpen)
	assert.Nil(t, page.Snapshot().View)

	require.NoError(t, page.Open(context.Background(), ""))
	assert.ErrorIs(t, page.Open(context.Background(), ""), framesync.ErrAlreadyOpen)
	require.NoError(t, page.Close())
	assert.ErrorIs(t, page.Settle(context.Background()), framesync.ErrNotOpen)
}
