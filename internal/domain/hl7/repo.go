package hl7

import "context"

type HL7Repository interface {
	// UpsertMessage reports whether a new row was created.
	UpsertMessage(ctx context.Context, m *Message) (bool, error)
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	UpsertBatch(ctx context.Context, b *Batch) (bool, error)
}
