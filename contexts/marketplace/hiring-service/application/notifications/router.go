package notifications

import (
	"context"
	"log/slog"

	application "gigflow/contexts/marketplace/hiring-service/application"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

// Router delivers realtime events to a user's live session, if any.
// Delivery is at-most-once: offline users are skipped and failed pushes are
// not retried.
type Router struct {
	Sessions ports.SessionRegistry
	Pusher   ports.SessionPusher
	Logger   *slog.Logger
}

func (r Router) Notify(_ context.Context, userID string, event ports.Notification) {
	logger := application.ResolveLogger(r.Logger)
	if r.Sessions == nil || r.Pusher == nil {
		return
	}

	sessionID, ok := r.Sessions.Lookup(userID)
	if !ok {
		logger.Debug("notification dropped for offline user",
			"event", "notification_dropped_offline",
			"module", "marketplace/hiring-service",
			"layer", "application",
			"user_id", userID,
			"notification_type", event.Type,
		)
		return
	}

	if err := r.Pusher.Push(sessionID, event); err != nil {
		logger.Warn("notification push failed",
			"event", "notification_push_failed",
			"module", "marketplace/hiring-service",
			"layer", "application",
			"user_id", userID,
			"session_id", sessionID,
			"notification_type", event.Type,
			"error", err.Error(),
		)
		return
	}

	logger.Info("notification pushed",
		"event", "notification_pushed",
		"module", "marketplace/hiring-service",
		"layer", "application",
		"user_id", userID,
		"session_id", sessionID,
		"notification_type", event.Type,
	)
}
