package hl7

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/hl7v2"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

// Message maps to the hl7_messages table.
type Message struct {
	MessageID     string
	CorrelationID string
	Status        string
	RawMessage    string
	FHIRResources []interface{}
	Errors        []interface{}
	ProcessedAt   *time.Time
}

// Batch maps to the hl7_batches table.
type Batch struct {
	BatchID       string
	TotalMessages int
	Processed     int
	Failed        int
	Status        string
	Payload       document.Document
}

func samplePatient() document.Document {
	return document.Document{
		"resourceType": "Patient",
		"id":           ident.Generate("patient"),
		"identifier":   []interface{}{document.Document{"value": "MRN-PLACEHOLDER"}},
		"name": []interface{}{document.Document{
			"family": "Sample",
			"given":  document.Strings("Patient"),
		}},
	}
}

// ingestTemplate is the default ingest response. When msg is non-nil its
// control id and PID segment seed the message id and Patient resource.
func ingestTemplate(msg *hl7v2.Message) document.Document {
	messageID := ident.Generate("msg")
	patient := samplePatient()
	if msg != nil {
		messageID = ident.Generate("msg", msg.ControlID)
		if p := msg.PatientResource(ident.Generate("patient")); p != nil {
			patient = p
		}
	}
	return document.Document{
		"messageId":     messageID,
		"correlationId": ident.Generate("corr"),
		"status":        "processed",
		"timestamp":     isotime.NowISO(),
		"fhirResources": []interface{}{patient},
		"errors":        []interface{}{},
	}
}

func toMessage(doc document.Document, raw string) *Message {
	return &Message{
		MessageID:     doc.String("messageId", ""),
		CorrelationID: doc.String("correlationId", ""),
		Status:        doc.String("status", "processed"),
		RawMessage:    raw,
		FHIRResources: listOrEmpty(doc["fhirResources"]),
		Errors:        listOrEmpty(doc["errors"]),
		ProcessedAt:   isotime.ParseDateTime(doc.String("timestamp", "")),
	}
}

func listOrEmpty(v interface{}) []interface{} {
	if l, ok := document.AsList(v); ok && l != nil {
		return l
	}
	return []interface{}{}
}
