package hl7

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type hl7RepoPG struct{ pool *pgxpool.Pool }

func NewHL7RepoPG(pool *pgxpool.Pool) HL7Repository {
	return &hl7RepoPG{pool: pool}
}

func (r *hl7RepoPG) UpsertMessage(ctx context.Context, m *Message) (bool, error) {
	return db.Upsert{
		Table:    "hl7_messages",
		Conflict: []string{"message_id"},
		Columns:  []string{"message_id", "correlation_id", "status", "raw_message", "fhir_resources", "errors", "processed_at"},
		Values:   []interface{}{m.MessageID, m.CorrelationID, m.Status, m.RawMessage, db.JSON(m.FHIRResources), db.JSON(m.Errors), m.ProcessedAt},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *hl7RepoPG) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var (
		m                 Message
		resources, errors []byte
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT message_id, correlation_id, status, raw_message, fhir_resources, errors, processed_at
		FROM hl7_messages WHERE message_id = $1`, messageID).
		Scan(&m.MessageID, &m.CorrelationID, &m.Status, &m.RawMessage, &resources, &errors, &m.ProcessedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	_ = json.Unmarshal(resources, &m.FHIRResources)
	_ = json.Unmarshal(errors, &m.Errors)
	return &m, nil
}

func (r *hl7RepoPG) UpsertBatch(ctx context.Context, b *Batch) (bool, error) {
	return db.Upsert{
		Table:    "hl7_batches",
		Conflict: []string{"batch_id"},
		Columns:  []string{"batch_id", "total_messages", "processed", "failed", "status", "payload"},
		Values:   []interface{}{b.BatchID, b.TotalMessages, b.Processed, b.Failed, b.Status, db.JSON(b.Payload)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
