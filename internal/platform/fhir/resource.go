package fhir

import (
	"strings"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// NewMeta returns a meta block stamped with the current time.
func NewMeta(versionID string) document.Document {
	return document.Document{
		"versionId":   versionID,
		"lastUpdated": isotime.NowISO(),
	}
}

// Ref renders "Type/id".
func Ref(resourceType, id string) string {
	return resourceType + "/" + id
}

// RefID returns the id part of a "Type/id" reference, or the input when it
// has no type prefix.
func RefID(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// RefType returns the type part of a "Type/id" reference.
func RefType(ref string) string {
	if i := strings.Index(ref, "/"); i > 0 {
		return ref[:i]
	}
	return ""
}

// Concept builds a single-coding CodeableConcept document.
func Concept(system, code string) document.Document {
	coding := document.Document{"code": code}
	if system != "" {
		coding["system"] = system
	}
	return document.Document{"coding": []interface{}{coding}}
}
