package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ProviderWhatsApp tags events received on the WhatsApp webhook.
const ProviderWhatsApp = "whatsapp"

var tracer = otel.Tracer("wpchat.internal.events")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProcessedStore records webhook events that were already handled.
type ProcessedStore struct {
	pool execer
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

func newProcessedStoreWithExec(exec execer) *ProcessedStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// MarkProcessed claims an event id for the provider. It returns false when
// another delivery already claimed it.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "events.mark_processed")
	defer span.End()
	span.SetAttributes(attribute.String("events.provider", provider))

	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, provider, eventID)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Forget releases a claim so a provider redelivery is processed again.
func (s *ProcessedStore) Forget(ctx context.Context, provider, eventID string) error {
	ctx, span := tracer.Start(ctx, "events.forget")
	defer span.End()

	if _, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE provider = $1 AND event_id = $2`, provider, eventID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("events: forget processed: %w", err)
	}
	return nil
}
