package patient

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

// Patient maps to the patients table.
type Patient struct {
	PatientID  string
	Identifier string
	Name       string
	BirthDate  *time.Time
	Gender     string
	Data       document.Document
}

// MergeEvent maps to the patient_merge_events table.
type MergeEvent struct {
	SourcePatientID string
	TargetPatientID string
	AuditID         string
	Payload         document.Document
}

// Export maps to the patient_exports table.
type Export struct {
	ExportID        string
	PatientID       string
	Status          string
	Format          string
	IncludeSections []string
	Data            document.Document
}

// SearchParams are the supported patient search filters.
type SearchParams struct {
	Identifier string
	Names      []string
	BirthDate  *time.Time
	Gender     string
}

func defaultIdentifiers() []interface{} {
	return []interface{}{document.Document{
		"use":   "usual",
		"type":  fhir.Concept("http://terminology.hl7.org/CodeSystem/v2-0203", "MR"),
		"value": "MRN-SAMPLE",
	}}
}

func defaultNames() []interface{} {
	return []interface{}{document.Document{
		"use":    "official",
		"family": "Sample",
		"given":  document.Strings("Patient"),
	}}
}

// patientTemplate is the default Patient for payload. versionID is used
// when the payload carries no meta.versionId.
func patientTemplate(payload document.Document, versionID string) document.Document {
	if payload == nil {
		payload = document.Document{}
	}
	return document.Document{
		"resourceType": "Patient",
		"id":           ident.FromValue("patient", payload["id"]),
		"meta":         fhir.NewMeta(payload.Map("meta").String("versionId", versionID)),
		"identifier":   document.EnsureList(payload["identifier"], defaultIdentifiers()),
		"name":         document.EnsureList(payload["name"], defaultNames()),
		"gender":       payload.Value("gender", "unknown"),
		"birthDate":    payload.Value("birthDate", "1970-01-01"),
	}
}

// mergePatient overlays payload on its template. Identifier and name lists
// that the payload leaves empty keep their defaults.
func mergePatient(template, payload document.Document) document.Document {
	doc := document.Merge(template, payload)
	doc["identifier"] = document.EnsureList(doc["identifier"], defaultIdentifiers())
	doc["name"] = document.EnsureList(doc["name"], defaultNames())
	return doc
}

// flatten derives the indexed columns from a merged Patient.
func flatten(id string, doc document.Document) *Patient {
	return &Patient{
		PatientID:  id,
		Identifier: document.FirstValue(doc["identifier"]),
		Name:       document.FullName(doc["name"]),
		BirthDate:  isotime.ParseDate(doc.String("birthDate", "")),
		Gender:     doc.String("gender", "unknown"),
		Data:       doc,
	}
}

// Resource returns the stored document, or a minimal Patient when none was
// stored.
func (p *Patient) Resource() document.Document {
	if len(p.Data) > 0 {
		return p.Data
	}
	return document.Document{"resourceType": "Patient", "id": p.PatientID}
}
