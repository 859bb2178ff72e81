package observation

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
)

type observationRepoPG struct{ pool *pgxpool.Pool }

func NewObservationRepoPG(pool *pgxpool.Pool) ObservationRepository {
	return &observationRepoPG{pool: pool}
}

const observationCols = `observation_id, patient_reference, category, code, status, effective_date_time, data`

func (r *observationRepoPG) Upsert(ctx context.Context, o *Observation) (bool, error) {
	return db.Upsert{
		Table:    "observations",
		Conflict: []string{"observation_id"},
		Columns:  []string{"observation_id", "patient_reference", "category", "code", "status", "effective_date_time", "data"},
		Values:   []interface{}{o.ObservationID, o.PatientReference, o.Category, o.Code, o.Status, o.EffectiveDateTime, db.JSON(o.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *observationRepoPG) UpsertAll(ctx context.Context, obs []*Observation) error {
	if len(obs) == 0 {
		return nil
	}
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		for _, o := range obs {
			if _, err := r.Upsert(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *observationRepoPG) Trend(ctx context.Context, q TrendQuery) ([]*Observation, error) {
	f := db.NewFilter("observations", observationCols).Contains("patient_reference", q.PatientID)
	if q.Code != "" {
		f.EqualFold("code", q.Code)
	}
	if q.Category != "" {
		f.EqualFold("category", q.Category)
	}
	f.OrderBy("effective_date_time NULLS LAST, created_at")

	rows, err := db.Conn(ctx, r.pool).Query(ctx, f.SQL(), f.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Observation
	for rows.Next() {
		var (
			o   Observation
			raw []byte
		)
		if err := rows.Scan(&o.ObservationID, &o.PatientReference, &o.Category, &o.Code, &o.Status, &o.EffectiveDateTime, &raw); err != nil {
			return nil, err
		}
		o.Data = document.Decode(raw)
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *observationRepoPG) UpsertAlert(ctx context.Context, a *AlertConfig) (bool, error) {
	return db.Upsert{
		Table:    "observation_alerts",
		Conflict: []string{"patient_id", "observation_code"},
		Columns:  []string{"patient_id", "observation_code", "thresholds", "notification_channels", "active"},
		Values:   []interface{}{a.PatientID, a.ObservationCode, db.JSON(a.Thresholds), db.JSON(a.NotificationChannels), a.Active},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
