package http_test

import (
	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/pkg/observability"
)

func framesyncHooks(m *observability.Metrics) []framesync.Option {
	return []framesync.Option{framesync.WithLifecycleHooks(m.Hooks())}
}
