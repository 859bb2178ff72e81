package appointment

import "context"

type AppointmentRepository interface {
	Upsert(ctx context.Context, a *Appointment) (bool, error)
	Availability(ctx context.Context, q AvailabilityQuery) ([]*Appointment, error)
	UpsertWaitlist(ctx context.Context, w *WaitlistEntry) (bool, error)
}
