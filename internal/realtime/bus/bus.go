package bus

import (
	"context"

	"github.com/yungbote/optocase-backend/internal/realtime"
)

// Bus fans SSE messages out across server instances. A single-instance
// deployment runs without one and broadcasts straight to the local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
