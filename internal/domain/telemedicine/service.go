package telemedicine

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   TelemedicineRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo TelemedicineRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "telemedicine").Logger()}
}

func (s *Service) CreateSession(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	now := isotime.NowISO()
	doc := document.Document{
		"sessionId":       ident.FromValue("session", payload["sessionId"]),
		"joinUrls":        payload.Value("joinUrls", defaultJoinURLs()),
		"accessWindow":    payload.Value("accessWindow", document.Document{"start": now, "end": now}),
		"sessionSettings": payload.Value("sessionSettings", defaultSettings()),
	}

	sess := &Session{
		SessionID:      doc.String("sessionId", ""),
		AppointmentID:  payload.String("appointmentId", ""),
		SessionType:    payload.String("sessionType", "video_consultation"),
		ScheduledStart: isotime.ParseDateTime(payload.String("scheduledStart", "")),
		JoinURLs:       doc["joinUrls"],
		Settings:       doc["sessionSettings"],
	}
	if n, ok := document.ToInt(payload["estimatedDuration"]); ok {
		sess.EstimatedDuration = &n
	}

	created, err := s.repo.UpsertSession(ctx, sess)
	if err != nil {
		return nil, false, err
	}
	s.log.Debug().Str("session_id", sess.SessionID).Bool("created", created).Msg("telemedicine session stored")
	s.events.Emit(ctx, "telemedicine.session.started.v1", events.Subject{Type: "TelemedicineSession", ID: sess.SessionID},
		document.Document{"appointmentId": sess.AppointmentID, "sessionType": sess.SessionType})
	return doc, created, nil
}

func (s *Service) RecordConsent(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"sessionId":   payload.Value("sessionId", ident.Generate("session")),
		"userId":      payload.Value("userId", ident.Generate("user")),
		"consentType": payload.Value("consentType", "video_recording"),
		"granted":     document.Truthy(payload.Value("granted", true)),
		"recordedAt":  payload.Value("timestamp", isotime.NowISO()),
		"ipAddress":   payload["ipAddress"],
	}

	c := &Consent{
		SessionID:   doc.String("sessionId", ""),
		UserID:      doc.String("userId", ""),
		ConsentType: doc.String("consentType", ""),
		Granted:     doc.Bool("granted", true),
		RecordedAt:  isotime.ParseDateTime(doc.String("recordedAt", "")),
		IPAddress:   doc.String("ipAddress", ""),
	}
	if _, err := s.repo.UpsertConsent(ctx, c); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "consent.updated.v1", events.Subject{Type: "User", ID: c.UserID}, document.Document{
		"sessionId":   c.SessionID,
		"consentType": c.ConsentType,
		"granted":     c.Granted,
	})
	return doc, nil
}

func queryNumber(query url.Values, key string) float64 {
	f, err := strconv.ParseFloat(query.Get(key), 64)
	if err != nil {
		return 0
	}
	return f
}

func queryInt(query url.Values, key string) int {
	n, _ := document.ToInt(query.Get(key))
	return n
}

// Metrics reports call quality from the query parameters and stores them
// on the session when it exists.
func (s *Service) Metrics(ctx context.Context, sessionID string, query url.Values) (document.Document, error) {
	q := document.FromQuery(query)
	quality := document.Document{
		"averageLatency": queryNumber(query, "averageLatency"),
		"packetLoss":     queryNumber(query, "packetLoss"),
		"videoQuality":   q.Value("videoQuality", "HD"),
		"audioQuality":   q.Value("audioQuality", "excellent"),
	}
	participants := []interface{}{document.Document{
		"userId":         ident.Generate("user"),
		"connectionTime": queryInt(query, "connectionTime"),
		"disconnections": queryInt(query, "disconnections"),
	}}

	found, err := s.repo.UpdateSettings(ctx, sessionID, document.Document{
		"qualityMetrics": quality,
		"participants":   participants,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		s.log.Debug().Str("session_id", sessionID).Msg("metrics for unknown session not stored")
	}

	return document.Document{
		"sessionId":      sessionID,
		"qualityMetrics": quality,
		"duration":       queryInt(query, "duration"),
		"participants":   participants,
	}, nil
}
