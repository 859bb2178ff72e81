package telemedicine

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
)

type telemedicineRepoPG struct{ pool *pgxpool.Pool }

func NewTelemedicineRepoPG(pool *pgxpool.Pool) TelemedicineRepository {
	return &telemedicineRepoPG{pool: pool}
}

func (r *telemedicineRepoPG) UpsertSession(ctx context.Context, s *Session) (bool, error) {
	return db.Upsert{
		Table:    "telemedicine_sessions",
		Conflict: []string{"session_id"},
		Columns:  []string{"session_id", "appointment_id", "session_type", "scheduled_start", "estimated_duration", "join_urls", "settings"},
		Values: []interface{}{s.SessionID, s.AppointmentID, s.SessionType, s.ScheduledStart, s.EstimatedDuration,
			db.JSON(s.JoinURLs), db.JSON(s.Settings)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *telemedicineRepoPG) UpdateSettings(ctx context.Context, sessionID string, settings document.Document) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE telemedicine_sessions SET settings = $2, updated_at = NOW() WHERE session_id = $1`,
		sessionID, db.JSON(settings))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *telemedicineRepoPG) UpsertConsent(ctx context.Context, c *Consent) (bool, error) {
	return db.Upsert{
		Table:    "telemedicine_consents",
		Conflict: []string{"session_id", "user_id", "consent_type"},
		Columns:  []string{"session_id", "user_id", "consent_type", "granted", "recorded_at", "ip_address"},
		Values:   []interface{}{c.SessionID, c.UserID, c.ConsentType, c.Granted, c.RecordedAt, c.IPAddress},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
