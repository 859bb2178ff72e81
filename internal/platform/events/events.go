// Package events publishes domain events for everything the portal writes.
// Every event uses the same envelope that /api/v1/kafka/events/schema
// documents.
package events

import (
	"context"
	"os"
	"sync"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
	"github.com/ehr/fhirportal/internal/platform/middleware"
	"github.com/rs/zerolog"
)

const (
	SourceService = "fhir-portal"
	SourceVersion = "1.0.0"
	EventVersion  = "1.0"
)

// Subject identifies the resource an event is about.
type Subject struct {
	Type string
	ID   string
}

var instance = func() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "fhir-portal"
}()

// Compliance is the compliance block attached to every event.
func Compliance() document.Document {
	return document.Document{
		"dataClassification": "PHI",
		"retentionPeriod":    "P7Y",
		"encryptionRequired": true,
		"auditRequired":      true,
	}
}

// New builds an event envelope. The request id in ctx becomes the
// correlation and trace id.
func New(ctx context.Context, eventType string, subject Subject, data document.Document) document.Document {
	rid := middleware.RequestIDFromContext(ctx)
	correlation := ident.Generate("corr", rid)
	if data == nil {
		data = document.Document{}
	}
	return document.Document{
		"eventId":      ident.Generate("event"),
		"eventType":    eventType,
		"eventVersion": EventVersion,
		"timestamp":    isotime.NowISO(),
		"source": document.Document{
			"service":  SourceService,
			"version":  SourceVersion,
			"instance": instance,
		},
		"subject": document.Document{
			"type": subject.Type,
			"id":   subject.ID,
		},
		"data": data,
		"metadata": document.Document{
			"correlationId": correlation,
			"causationId":   nil,
			"traceId":       correlation,
			"priority":      "normal",
			"retryCount":    0,
		},
		"compliance": Compliance(),
	}
}

// Publisher delivers a built envelope.
type Publisher interface {
	Publish(ctx context.Context, event document.Document) error
}

// Emitter builds and publishes events on behalf of services. Publishing is
// best effort: failures are logged and never returned to the caller.
type Emitter struct {
	pub Publisher
	log zerolog.Logger
}

func NewEmitter(pub Publisher, log zerolog.Logger) *Emitter {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Emitter{pub: pub, log: log}
}

// Emit publishes one event and returns its envelope.
func (e *Emitter) Emit(ctx context.Context, eventType string, subject Subject, data document.Document) document.Document {
	evt := New(ctx, eventType, subject, data)
	e.Publish(ctx, evt)
	return evt
}

// Publish sends a caller-built envelope.
func (e *Emitter) Publish(ctx context.Context, evt document.Document) {
	if e == nil {
		return
	}
	if err := e.pub.Publish(ctx, evt); err != nil {
		e.log.Warn().Err(err).
			Str("event_type", evt.String("eventType", "")).
			Str("event_id", evt.String("eventId", "")).
			Msg("event publish failed")
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, document.Document) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []document.Document
}

func (r *Recorder) Publish(_ context.Context, evt document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]document.Document, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the eventType of every recorded event in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.String("eventType", ""))
	}
	return out
}
