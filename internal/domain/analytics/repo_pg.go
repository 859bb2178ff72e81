package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type analyticsRepoPG struct{ pool *pgxpool.Pool }

func NewAnalyticsRepoPG(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepoPG{pool: pool}
}

func (r *analyticsRepoPG) UpsertRiskScore(ctx context.Context, s *RiskScore) (bool, error) {
	return db.Upsert{
		Table:    "analytics_risk_scores",
		Conflict: []string{"patient_id", "risk_type"},
		Columns:  []string{"patient_id", "risk_type", "score", "level", "confidence", "factors", "recommendations"},
		Values: []interface{}{s.PatientID, s.RiskType, s.Score, s.Level, s.Confidence,
			db.JSON(s.Factors), db.JSON(s.Recommendations)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *analyticsRepoPG) UpsertTrainingJob(ctx context.Context, j *TrainingJob) (bool, error) {
	return db.Upsert{
		Table:    "analytics_training_jobs",
		Conflict: []string{"training_job_id"},
		Columns:  []string{"training_job_id", "model_name", "model_type", "status", "configuration", "progress"},
		Values: []interface{}{j.TrainingJobID, j.ModelName, j.ModelType, j.Status,
			db.JSON(j.Configuration), db.JSON(j.Progress)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *analyticsRepoPG) UpsertAlert(ctx context.Context, a *Alert) (bool, error) {
	return db.Upsert{
		Table:    "analytics_alerts",
		Conflict: []string{"alert_id"},
		Columns:  []string{"alert_id", "patient_id", "model_id", "configuration", "assessment"},
		Values:   []interface{}{a.AlertID, a.PatientID, a.ModelID, db.JSON(a.Configuration), db.JSON(a.Assessment)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *analyticsRepoPG) UpsertTrendRequest(ctx context.Context, t *TrendRequest) (bool, error) {
	return db.Upsert{
		Table:    "analytics_trend_requests",
		Conflict: []string{"analysis_id"},
		Columns:  []string{"analysis_id", "parameters", "trends", "correlations", "anomalies"},
		Values: []interface{}{t.AnalysisID, db.JSON(t.Parameters), db.JSON(t.Trends),
			db.JSON(t.Correlations), db.JSON(t.Anomalies)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *analyticsRepoPG) UpsertFHIRLink(ctx context.Context, l *FHIRLink) (bool, error) {
	return db.Upsert{
		Table:    "analytics_fhir_links",
		Conflict: []string{"linking_id"},
		Columns:  []string{"linking_id", "patient_id", "model_id", "fhir_resources", "audit_trail"},
		Values:   []interface{}{l.LinkingID, l.PatientID, l.ModelID, db.JSON(l.FHIRResources), db.JSON(l.AuditTrail)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
