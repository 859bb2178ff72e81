package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) UpsertEvent(ctx context.Context, e *Event) (bool, error) {
	return db.Upsert{
		Table:    "audit_events",
		Conflict: []string{"audit_id"},
		Columns: []string{"audit_id", "event_type", "user_id", "resource_type", "resource_id", "action",
			"occurred_at", "immutable_hash", "data"},
		Values: []interface{}{e.AuditID, e.EventType, e.UserID, e.ResourceType, e.ResourceID, e.Action,
			e.OccurredAt, e.ImmutableHash, db.JSON(e.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *auditRepoPG) UpsertExport(ctx context.Context, e *Export) (bool, error) {
	return db.Upsert{
		Table:    "audit_exports",
		Conflict: []string{"export_id"},
		Columns:  []string{"export_id", "status", "format", "download_url", "data"},
		Values:   []interface{}{e.ExportID, e.Status, e.Format, e.DownloadURL, db.JSON(e.Parameters)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *auditRepoPG) UpsertAnomaly(ctx context.Context, a *Anomaly) (bool, error) {
	return db.Upsert{
		Table:    "audit_anomalies",
		Conflict: []string{"anomaly_id"},
		Columns:  []string{"anomaly_id", "user_id", "anomaly_type", "description", "severity", "score", "detected_at", "data"},
		Values: []interface{}{a.AnomalyID, a.UserID, a.AnomalyType, a.Description, a.Severity, a.Score,
			a.DetectedAt, db.JSON(a.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *auditRepoPG) ListAnomalies(ctx context.Context, q AnomalyQuery) ([]*Anomaly, error) {
	f := db.NewFilter("audit_anomalies",
		"anomaly_id, user_id, anomaly_type, description, severity, score, detected_at")
	if q.UserID != "" {
		f.Equal("user_id", q.UserID)
	}
	if q.Severity != "" {
		f.EqualFold("severity", q.Severity)
	}
	f.OrderBy("detected_at DESC").Page(q.Limit, q.Offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, f.SQL(), f.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Anomaly
	for rows.Next() {
		var a Anomaly
		if err := rows.Scan(&a.AnomalyID, &a.UserID, &a.AnomalyType, &a.Description, &a.Severity,
			&a.Score, &a.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
