package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/aretw0/framesync/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountPageTraffic(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	page := framesync.New(miniapp.Demo(), framesync.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, page.Open(ctx, "http://localhost/"))
	defer page.Close()

	require.NoError(t, page.Click(ctx, "Go to foo"))
	_, err = page.Back(ctx)
	require.NoError(t, err)
	_, err = page.SetHash(ctx, "#!/missing")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryPushes))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Messages.WithLabelValues(string(domain.GuestToHost), "ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Messages.WithLabelValues(string(domain.GuestToHost), "routeChanged")))
	// Initial injection, back, and the unknown hash.
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Messages.WithLabelValues(string(domain.HostToGuest), "navigate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("/")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("/foo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("not_found")))
}

func TestMetrics_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	second.HistoryPushes.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.HistoryPushes))
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	page := framesync.New(miniapp.Demo(), framesync.WithLifecycleHooks(observability.LoggingHooks(logger)))
	require.NoError(t, page.Open(ctx, "http://localhost/"))
	defer page.Close()
	require.NoError(t, page.Click(ctx, "Go to foo"))

	out := buf.String()
	assert.Contains(t, out, "msg=history_push")
	assert.Contains(t, out, "hash=#!/foo")
	assert.Contains(t, out, "type=routeChanged")
}
