package appointment

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) Upsert(ctx context.Context, a *Appointment) (bool, error) {
	return db.Upsert{
		Table:    "appointments",
		Conflict: []string{"appointment_id"},
		Columns: []string{"appointment_id", "status", "start_time", "end_time", "patient_reference",
			"practitioner_reference", "service_category", "appointment_type", "data"},
		Values: []interface{}{a.AppointmentID, a.Status, a.Start, a.End, a.PatientReference,
			a.PractitionerReference, a.ServiceCategory, a.AppointmentType, db.JSON(a.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *appointmentRepoPG) Availability(ctx context.Context, q AvailabilityQuery) ([]*Appointment, error) {
	f := db.NewFilter("appointments", "appointment_id, status, start_time, end_time")
	if q.Practitioner != "" {
		f.Contains("practitioner_reference", q.Practitioner)
	}
	if q.Date != nil {
		f.OnDate("start_time", *q.Date)
	}
	f.OrderBy("start_time NULLS LAST, created_at")

	rows, err := db.Conn(ctx, r.pool).Query(ctx, f.SQL(), f.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.AppointmentID, &a.Status, &a.Start, &a.End); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) UpsertWaitlist(ctx context.Context, w *WaitlistEntry) (bool, error) {
	return db.Upsert{
		Table:    "waitlist_entries",
		Conflict: []string{"appointment_id", "patient_id"},
		Columns:  []string{"appointment_id", "patient_id", "preferred_dates", "preferred_times", "priority", "notification_preferences"},
		Values: []interface{}{w.AppointmentID, w.PatientID, db.JSON(w.PreferredDates), db.JSON(w.PreferredTimes),
			w.Priority, db.JSON(w.NotificationPreferences)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
