package access

import "context"

type AccessRepository interface {
	UpsertAssignment(ctx context.Context, a *Assignment) (bool, error)
	CreateEvaluation(ctx context.Context, ev *Evaluation) error
}
