package observability

import (
	"context"
	"errors"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the protocol collectors.
type Metrics struct {
	Messages      *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	HistoryPushes prometheus.Counter
	Renders       *prometheus.CounterVec
	ReadyTimeouts prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered (e.g. by another server in the same process)
// are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framesync_messages_total",
				Help: "Protocol messages handled, by direction and type",
			},
			[]string{"direction", "type"},
		),
		Dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framesync_messages_dropped_total",
				Help: "Messages or updates intentionally ignored, by reason",
			},
			[]string{"reason"},
		),
		HistoryPushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framesync_history_pushes_total",
			Help: "History entries pushed by the host on guest route changes",
		}),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framesync_renders_total",
				Help: "Views rendered by the guest, by route",
			},
			[]string{"route"},
		),
		ReadyTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framesync_ready_timeouts_total",
			Help: "Pages whose guest did not signal readiness in time",
		}),
	}

	var err error
	m.Messages, err = register(reg, m.Messages)
	if err != nil {
		return nil, err
	}
	m.Dropped, err = register(reg, m.Dropped)
	if err != nil {
		return nil, err
	}
	m.HistoryPushes, err = register(reg, m.HistoryPushes)
	if err != nil {
		return nil, err
	}
	m.Renders, err = register(reg, m.Renders)
	if err != nil {
		return nil, err
	}
	m.ReadyTimeouts, err = register(reg, m.ReadyTimeouts)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			m.Messages.WithLabelValues(string(e.Direction), string(e.Message.Type)).Inc()
		},
		OnDrop: func(_ context.Context, e *domain.DropEvent) {
			m.Dropped.WithLabelValues(e.Reason).Inc()
		},
		OnHistoryPush: func(context.Context, *domain.HistoryEvent) {
			m.HistoryPushes.Inc()
		},
		OnRender: func(_ context.Context, e *domain.RenderEvent) {
			route := string(e.View.Route)
			if e.View.NotFound {
				// Bound label cardinality.
				route = "not_found"
			}
			m.Renders.WithLabelValues(route).Inc()
		},
		OnReadyTimeout: func(context.Context, *domain.ReadyTimeoutEvent) {
			m.ReadyTimeouts.Inc()
		},
	}
}
