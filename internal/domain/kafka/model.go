package kafka

import "github.com/ehr/fhirportal/internal/platform/document"

// EventRecord maps to kafka_events.
type EventRecord struct {
	EventID   string
	EventType string
	Payload   document.Document
	Metadata  document.Document
}

// DeadLetter maps to kafka_dead_letters.
type DeadLetter struct {
	DLQEventID    string
	OriginalEvent interface{}
	FailureInfo   document.Document
	Routing       document.Document
}
