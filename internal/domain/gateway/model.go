package gateway

import (
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/fhir"
)

// Request is one logged gateway call (fhir_gateway_requests).
type Request struct {
	RequestID       string
	ResourceType    string
	ResourceID      string
	Method          string
	StatusCode      int
	ResponsePayload document.Document
}

// samplePatient stands in for a patient the portal has never stored.
// Identifiers come from repeated ?identifier= parameters.
func samplePatient(patientID, versionID string, identifiers []string) document.Document {
	return document.Document{
		"resourceType": "Patient",
		"id":           patientID,
		"meta":         fhir.NewMeta(versionID),
		"identifier": document.EnsureList(document.Strings(identifiers...), []interface{}{
			document.Document{"use": "usual", "value": "MRN-SAMPLE"},
		}),
	}
}
