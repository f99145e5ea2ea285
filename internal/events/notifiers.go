package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/db"
)

// LogNotifier writes every emitted event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	evt := n.Logger.Info().Str("topic", event.Topic)
	if event.ID.Valid {
		evt = evt.Str("event_id", uuid.UUID(event.ID.Bytes).String())
	}
	if event.AggregateID.Valid {
		evt = evt.Str("aggregate_id", uuid.UUID(event.AggregateID.Bytes).String())
	}
	evt.RawJSON("payload", event.Payload).Msg("domain_event")
	return nil
}
