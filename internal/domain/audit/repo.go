package audit

import "context"

type AuditRepository interface {
	UpsertEvent(ctx context.Context, e *Event) (bool, error)
	UpsertExport(ctx context.Context, e *Export) (bool, error)
	UpsertAnomaly(ctx context.Context, a *Anomaly) (bool, error)
	ListAnomalies(ctx context.Context, q AnomalyQuery) ([]*Anomaly, error)
}
