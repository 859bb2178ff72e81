package analytics

import "context"

type AnalyticsRepository interface {
	UpsertRiskScore(ctx context.Context, r *RiskScore) (bool, error)
	UpsertTrainingJob(ctx context.Context, j *TrainingJob) (bool, error)
	UpsertAlert(ctx context.Context, a *Alert) (bool, error)
	UpsertTrendRequest(ctx context.Context, t *TrendRequest) (bool, error)
	UpsertFHIRLink(ctx context.Context, l *FHIRLink) (bool, error)
}
