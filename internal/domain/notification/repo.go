package notification

import "context"

type NotificationRepository interface {
	UpsertMessage(ctx context.Context, m *Message) (bool, error)
	UpsertTemplate(ctx context.Context, t *Template) (bool, error)
	UpsertCampaign(ctx context.Context, c *Campaign) (bool, error)
}
