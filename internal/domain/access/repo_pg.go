package access

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type accessRepoPG struct{ pool *pgxpool.Pool }

func NewAccessRepoPG(pool *pgxpool.Pool) AccessRepository {
	return &accessRepoPG{pool: pool}
}

func (r *accessRepoPG) UpsertAssignment(ctx context.Context, a *Assignment) (bool, error) {
	return db.Upsert{
		Table:    "role_assignments",
		Conflict: []string{"assignment_id"},
		Columns:  []string{"assignment_id", "user_id", "status", "roles", "permissions", "effective_date", "expiry_date", "reason"},
		Values: []interface{}{a.AssignmentID, a.UserID, a.Status, db.JSON(a.Roles), db.JSON(a.Permissions),
			a.EffectiveDate, a.ExpiryDate, a.Reason},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *accessRepoPG) CreateEvaluation(ctx context.Context, ev *Evaluation) error {
	return db.Insert{
		Table:   "abac_evaluations",
		Columns: []string{"user_id", "resource_type", "resource_id", "action", "decision", "context"},
		Values:  []interface{}{ev.UserID, ev.ResourceType, ev.ResourceID, ev.Action, ev.Decision, db.JSON(ev.Context)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
