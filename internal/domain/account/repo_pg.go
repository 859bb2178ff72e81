package account

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewAccountRepoPG(pool *pgxpool.Pool) AccountRepository {
	return &accountRepoPG{pool: pool}
}

func (r *accountRepoPG) CreateEvent(ctx context.Context, ev *AuthEvent) error {
	return db.Insert{
		Table:   "auth_events",
		Columns: []string{"user_id", "event_type", "username", "device_info", "metadata"},
		Values:  []interface{}{ev.UserID, ev.EventType, ev.Username, db.JSON(ev.DeviceInfo), db.JSON(ev.Metadata)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
