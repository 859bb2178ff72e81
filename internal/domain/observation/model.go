package observation

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

const categorySystem = "http://terminology.hl7.org/CodeSystem/observation-category"

// Observation maps to the observations table.
type Observation struct {
	ObservationID     string
	PatientReference  string
	Category          string
	Code              string
	Status            string
	EffectiveDateTime *time.Time
	Data              document.Document
}

// AlertConfig maps to the observation_alerts table, keyed by patient and
// observation code.
type AlertConfig struct {
	PatientID            string
	ObservationCode      string
	Thresholds           interface{}
	NotificationChannels []interface{}
	Active               bool
}

// TrendQuery selects the observations that feed a trend.
type TrendQuery struct {
	PatientID string
	Code      string
	Category  string
}

func observationTemplate(payload document.Document) document.Document {
	return document.Document{
		"resourceType": payload.Value("resourceType", "Observation"),
		"id":           ident.FromValue("obs", payload["id"]),
		"meta":         fhir.NewMeta(payload.Map("meta").String("versionId", "1")),
		"status":       payload.Value("status", "final"),
		"category": document.EnsureList(payload["category"], []interface{}{
			fhir.Concept(categorySystem, "vital-signs"),
		}),
	}
}

// flatten derives the indexed columns from an Observation resource.
func flatten(id string, doc document.Document) *Observation {
	return &Observation{
		ObservationID:     id,
		PatientReference:  doc.Map("subject").String("reference", ""),
		Category:          document.FirstCode(doc["category"]),
		Code:              document.CodeOf(doc["code"]),
		Status:            doc.String("status", "final"),
		EffectiveDateTime: isotime.ParseDateTime(doc.String("effectiveDateTime", "")),
		Data:              doc,
	}
}
