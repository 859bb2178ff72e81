package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewNotificationRepoPG(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) UpsertMessage(ctx context.Context, m *Message) (bool, error) {
	return db.Upsert{
		Table:    "notification_messages",
		Conflict: []string{"notification_id"},
		Columns:  []string{"notification_id", "recipient_id", "template", "status", "channels", "data", "scheduled_at"},
		Values: []interface{}{m.NotificationID, m.RecipientID, m.Template, m.Status,
			db.JSON(m.Channels), db.JSON(m.Data), m.ScheduledAt},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *notificationRepoPG) UpsertTemplate(ctx context.Context, t *Template) (bool, error) {
	return db.Upsert{
		Table:    "notification_templates",
		Conflict: []string{"name"},
		Columns:  []string{"name", "template_id", "channels", "variables"},
		Values:   []interface{}{t.Name, t.TemplateID, db.JSON(t.Channels), db.JSON(t.Variables)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *notificationRepoPG) UpsertCampaign(ctx context.Context, c *Campaign) (bool, error) {
	return db.Upsert{
		Table:    "notification_campaigns",
		Conflict: []string{"campaign_name"},
		Columns:  []string{"campaign_name", "template_name", "status", "channels", "recipients", "scheduled_at"},
		Values: []interface{}{c.CampaignName, c.TemplateName, c.Status,
			db.JSON(c.Channels), db.JSON(c.Recipients), c.ScheduledAt},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
