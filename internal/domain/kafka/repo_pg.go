package kafka

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type kafkaRepoPG struct{ pool *pgxpool.Pool }

func NewKafkaRepoPG(pool *pgxpool.Pool) KafkaRepository {
	return &kafkaRepoPG{pool: pool}
}

func (r *kafkaRepoPG) UpsertEvent(ctx context.Context, e *EventRecord) (bool, error) {
	return db.Upsert{
		Table:    "kafka_events",
		Conflict: []string{"event_id"},
		Columns:  []string{"event_id", "event_type", "payload", "metadata"},
		Values:   []interface{}{e.EventID, e.EventType, db.JSON(e.Payload), db.JSON(e.Metadata)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *kafkaRepoPG) UpsertDeadLetter(ctx context.Context, d *DeadLetter) (bool, error) {
	return db.Upsert{
		Table:    "kafka_dead_letters",
		Conflict: []string{"dlq_event_id"},
		Columns:  []string{"dlq_event_id", "original_event", "failure_info", "routing"},
		Values:   []interface{}{d.DLQEventID, db.JSON(d.OriginalEvent), db.JSON(d.FailureInfo), db.JSON(d.Routing)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
