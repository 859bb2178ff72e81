package appointment

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   AppointmentRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo AppointmentRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "appointment").Logger()}
}

func (s *Service) Book(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	doc := document.Merge(appointmentTemplate(payload), payload)
	id := ident.FromValue("appt", doc["id"])

	rec := flatten(id, doc)
	created, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	doc["id"] = id
	s.log.Debug().Str("appointment_id", id).Bool("created", created).Msg("appointment stored")

	s.events.Emit(ctx, "appointment.booked.v1", events.Subject{Type: "Appointment", ID: id}, document.Document{
		"patientId":      fhir.RefID(rec.PatientReference),
		"practitionerId": fhir.RefID(rec.PractitionerReference),
		"status":         rec.Status,
	})
	return doc, created, nil
}

// Availability lists stored appointments as slots. An unparseable date is
// echoed back but does not filter.
func (s *Service) Availability(ctx context.Context, query url.Values) (document.Document, error) {
	practitioner := query.Get("practitioner")
	date := query.Get("date")

	rows, err := s.repo.Availability(ctx, AvailabilityQuery{
		Practitioner: practitioner,
		Date:         isotime.ParseDate(date),
	})
	if err != nil {
		return nil, err
	}

	slots := make([]interface{}, 0, len(rows))
	for _, a := range rows {
		slots = append(slots, a.slot())
	}
	if len(slots) == 0 {
		now := isotime.NowISO()
		slots = append(slots, document.Document{"start": now, "end": now, "type": "available"})
	}

	if date == "" {
		date = isotime.Today()
	}
	if practitioner == "" {
		practitioner = ident.Generate("practitioner")
	}
	return document.Document{
		"date":           date,
		"practitioner":   practitioner,
		"availableSlots": slots,
	}, nil
}

func (s *Service) Waitlist(ctx context.Context, appointmentID string, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"appointmentId": appointmentID,
		"status":        payload.Value("status", "added"),
		"priority":      payload.Value("priority", "routine"),
		"notificationPreferences": payload.Value("notificationPreferences", document.Document{
			"email":         true,
			"sms":           true,
			"advanceNotice": "24h",
		}),
	}

	w := &WaitlistEntry{
		AppointmentID:           appointmentID,
		PatientID:               ident.FromValue("patient", payload["patientId"]),
		PreferredDates:          document.EnsureList(payload["preferredDates"], []interface{}{}),
		PreferredTimes:          document.EnsureList(payload["preferredTimes"], []interface{}{}),
		Priority:                doc.String("priority", "routine"),
		NotificationPreferences: doc["notificationPreferences"],
	}
	if _, err := s.repo.UpsertWaitlist(ctx, w); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "appointment.waitlist.added.v1", events.Subject{Type: "Appointment", ID: appointmentID},
		document.Document{"patientId": w.PatientID, "priority": w.Priority})
	return doc, nil
}
