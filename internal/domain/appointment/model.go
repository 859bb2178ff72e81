package appointment

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

// Appointment maps to the appointments table.
type Appointment struct {
	AppointmentID         string
	Status                string
	Start                 *time.Time
	End                   *time.Time
	PatientReference      string
	PractitionerReference string
	ServiceCategory       string
	AppointmentType       string
	Data                  document.Document
}

// WaitlistEntry maps to the waitlist_entries table, keyed by appointment
// and patient.
type WaitlistEntry struct {
	AppointmentID           string
	PatientID               string
	PreferredDates          []interface{}
	PreferredTimes          []interface{}
	Priority                string
	NotificationPreferences interface{}
}

// AvailabilityQuery narrows the slots returned by availability.
type AvailabilityQuery struct {
	Practitioner string
	Date         *time.Time
}

func appointmentTemplate(payload document.Document) document.Document {
	return document.Document{
		"resourceType":     "Appointment",
		"id":               ident.FromValue("appt", payload["id"]),
		"meta":             fhir.NewMeta(payload.Map("meta").String("versionId", "1")),
		"status":           payload.Value("status", "booked"),
		"start":            payload.Value("start", isotime.NowISO()),
		"end":              payload.Value("end", isotime.NowISO()),
		"confirmationCode": payload.Value("confirmationCode", ident.Generate("conf")),
		"participant":      document.EnsureList(payload["participant"], []interface{}{}),
	}
}

func flatten(id string, doc document.Document) *Appointment {
	participants := document.EnsureList(doc["participant"], []interface{}{})
	return &Appointment{
		AppointmentID:         id,
		Status:                doc.String("status", "booked"),
		Start:                 isotime.ParseDateTime(doc.String("start", "")),
		End:                   isotime.ParseDateTime(doc.String("end", "")),
		PatientReference:      document.ParticipantReference(participants, "Patient"),
		PractitionerReference: document.ParticipantReference(participants, "Practitioner"),
		ServiceCategory:       document.FirstCode(doc["serviceCategory"]),
		AppointmentType:       document.CodeOf(doc["appointmentType"]),
		Data:                  doc,
	}
}

// slot renders a stored appointment as an availability slot.
func (a *Appointment) slot() document.Document {
	start, end := isotime.Format(a.Start), isotime.Format(a.End)
	if start == "" {
		start = isotime.NowISO()
	}
	if end == "" {
		end = isotime.NowISO()
	}
	return document.Document{"start": start, "end": end, "type": a.Status}
}
