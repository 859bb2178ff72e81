package access

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/auth"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   AccessRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo AccessRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "access").Logger()}
}

// callerID prefers an explicit userId and falls back to the bearer token
// subject.
func callerID(ctx context.Context, payload document.Document) string {
	return payload.String("userId", auth.UserIDFromContext(ctx))
}

func (s *Service) Assign(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"assignmentId": ident.FromValue("assignment", payload["assignmentId"]),
		"status":       payload.Value("status", "active"),
		"permissions": document.EnsureList(payload["permissions"],
			document.Strings("read:patient_records", "write:observations", "manage:department_users")),
		"effectiveDate": payload.Value("effectiveDate", isotime.NowISO()),
		"expiryDate":    payload["expiryDate"],
	}

	a := &Assignment{
		AssignmentID:  doc.String("assignmentId", ""),
		UserID:        callerID(ctx, payload),
		Status:        doc.String("status", "active"),
		Roles:         document.EnsureList(payload["roles"], []interface{}{}),
		Permissions:   doc.List("permissions"),
		EffectiveDate: isotime.ParseDateTime(doc.String("effectiveDate", "")),
		ExpiryDate:    isotime.ParseDateTime(doc.String("expiryDate", "")),
		Reason:        payload.String("reason", ""),
	}
	created, err := s.repo.UpsertAssignment(ctx, a)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("assignment_id", a.AssignmentID).Bool("created", created).Msg("role assignment stored")
	s.events.Emit(ctx, "role.assigned.v1", events.Subject{Type: "User", ID: a.UserID},
		document.Document{"assignmentId": a.AssignmentID, "roles": a.Roles})
	return doc, nil
}

// Validate answers a permission check. The decision itself comes from the
// payload; every check is recorded.
func (s *Service) Validate(ctx context.Context, payload document.Document) (document.Document, error) {
	decision := payload.Value("decision", "permit")
	allowed := document.Truthy(payload.Value("allowed", true))
	doc := document.Document{
		"allowed":    allowed,
		"decision":   decision,
		"reason":     payload.Value("reason", "User has appropriate role with required permission"),
		"conditions": document.EnsureList(payload["conditions"], document.Strings("audit_required")),
	}

	ev := &Evaluation{
		UserID:       callerID(ctx, payload),
		ResourceType: payload.String("resourceType", ""),
		ResourceID:   payload.String("resource", ""),
		Action:       payload.String("action", "read"),
		Decision:     doc.String("decision", ""),
		Context:      payload.Map("context"),
	}
	if err := s.repo.CreateEvaluation(ctx, ev); err != nil {
		return nil, err
	}

	eventType := "access.granted.v1"
	if !allowed {
		eventType = "permission.denied.v1"
	}
	s.events.Emit(ctx, eventType, events.Subject{Type: "User", ID: ev.UserID}, document.Document{
		"resourceType": ev.ResourceType,
		"action":       ev.Action,
		"decision":     ev.Decision,
	})
	return doc, nil
}

func (s *Service) EvaluateABAC(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"decision":    payload.Value("decision", "permit"),
		"explanation": payload.Value("explanation", "Subject, resource, and environment attributes satisfy policy rules"),
		"obligations": document.EnsureList(payload["obligations"], document.Strings("log_access", "session_timeout")),
		"evaluatedAt": isotime.NowISO(),
	}

	subject, resource := payload.Map("subject"), payload.Map("resource")
	ev := &Evaluation{
		UserID:       subject.String("userId", auth.UserIDFromContext(ctx)),
		ResourceType: resource.String("type", ""),
		ResourceID:   resource.String("id", ""),
		Action:       payload.String("action", "read"),
		Decision:     doc.String("decision", ""),
		Context: document.Document{
			"subject":     subject,
			"resource":    resource,
			"environment": payload.Map("environment"),
		},
	}
	if err := s.repo.CreateEvaluation(ctx, ev); err != nil {
		return nil, err
	}
	return doc, nil
}
