package hl7v2

import (
	"strings"

	"github.com/ehr/fhirportal/internal/platform/document"
)

var genderCodes = map[string]string{
	"M": "male",
	"F": "female",
	"O": "other",
	"A": "other",
	"U": "unknown",
	"N": "unknown",
}

// PatientResource projects PID onto a FHIR Patient with the given id.
// Fields missing from PID are omitted. It returns nil when the message has
// no PID segment.
func (m *Message) PatientResource(id string) document.Document {
	if m.Segment("PID") == nil {
		return nil
	}

	patient := document.Document{"resourceType": "Patient", "id": id}

	if mrn := m.PatientID(); mrn != "" {
		identifier := document.Document{"value": mrn}
		if auth := m.Segment("PID").Component(3, 4); auth != "" {
			identifier["system"] = auth
		}
		patient["identifier"] = []interface{}{identifier}
	}

	family, given, middle := m.PatientName()
	if family != "" || given != "" {
		name := document.Document{}
		if family != "" {
			name["family"] = family
		}
		var givens []string
		for _, g := range []string{given, middle} {
			if g != "" {
				givens = append(givens, g)
			}
		}
		if len(givens) > 0 {
			name["given"] = document.Strings(givens...)
		}
		patient["name"] = []interface{}{name}
	}

	if g, ok := genderCodes[strings.ToUpper(m.Gender())]; ok {
		patient["gender"] = g
	}

	if dob := m.DateOfBirth(); len(dob) >= 8 {
		if ts, err := parseTimestamp(dob); err == nil {
			patient["birthDate"] = ts.Format("2006-01-02")
		}
	}

	return patient
}
