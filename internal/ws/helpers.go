package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rental-chat/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

// publishLifecycle reports connect, disconnect and error transitions of a
// connection to the broker.
func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	var durationMs int64
	if event != "ws_connect" {
		durationMs = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "chat",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMs,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	_ = observability.PublishEvent(ctx, observability.RoutingWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent(event)
}
