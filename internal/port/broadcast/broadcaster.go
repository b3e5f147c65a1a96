// Package broadcast defines the fan-out port for execution lifecycle
// events. The WebSocket hub is its production implementation.
package broadcast

import "context"

// Broadcaster pushes one typed event to every connected client. Delivery is
// best-effort: a slow or dead client must never stall an execution.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
