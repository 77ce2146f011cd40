package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/framesync/pkg/domain"
)

// LoggingHooks logs every protocol event at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMessage: func(ctx context.Context, e *domain.MessageEvent) {
			logger.DebugContext(ctx, "message",
				"direction", e.Direction,
				"type", e.Message.Type,
				"route", e.Message.Route,
			)
		},
		OnDrop: func(ctx context.Context, e *domain.DropEvent) {
			logger.DebugContext(ctx, "dropped",
				"direction", e.Direction,
				"type", e.Message.Type,
				"route", e.Message.Route,
				"reason", e.Reason,
			)
		},
		OnHistoryPush: func(ctx context.Context, e *domain.HistoryEvent) {
			logger.DebugContext(ctx, "history_push", "hash", e.Hash, "index", e.Index)
		},
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			logger.DebugContext(ctx, "render", "route", e.View.Route, "not_found", e.View.NotFound)
		},
	}
}
