package kafka

import "context"

type KafkaRepository interface {
	UpsertEvent(ctx context.Context, e *EventRecord) (bool, error)
	UpsertDeadLetter(ctx context.Context, d *DeadLetter) (bool, error)
}
