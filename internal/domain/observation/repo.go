package observation

import "context"

type ObservationRepository interface {
	Upsert(ctx context.Context, o *Observation) (bool, error)
	// UpsertAll stores every observation or none of them.
	UpsertAll(ctx context.Context, obs []*Observation) error
	Trend(ctx context.Context, q TrendQuery) ([]*Observation, error)
	UpsertAlert(ctx context.Context, a *AlertConfig) (bool, error)
}
