package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event on the wire. Consumers key analytics and
// gradebook exports off these.
type Type string

const (
	TypeUserRegistered   Type = "user.registered"
	TypeCasePublished    Type = "case.published"
	TypeAttemptEnsured   Type = "attempt.ensured"
	TypeAttemptSaved     Type = "attempt.saved"
	TypeAttemptCompleted Type = "attempt.completed"
)

// Event is the envelope every published record shares. Payload stays
// event-specific and schemaless. Key sets the broker partition key; attempt
// events key by case id so one case's activity stays ordered.
type Event struct {
	Type       Type           `json:"type"`
	Key        string         `json:"-"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    uuid.UUID      `json:"actor_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher delivers domain events to the broker. Delivery is best effort;
// callers never fail a request over a publish error.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoopPublisher drops everything. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
func (NoopPublisher) Close() error                                { return nil }
