package observation

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   ObservationRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo ObservationRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "observation").Logger()}
}

func (s *Service) Create(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	doc := document.Merge(observationTemplate(payload), payload)
	id := ident.FromValue("obs", doc["id"])

	rec := flatten(id, doc)
	created, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	doc["id"] = id
	s.log.Debug().Str("observation_id", id).Bool("created", created).Msg("observation stored")

	s.events.Emit(ctx, "observation.created.v1", events.Subject{Type: "Observation", ID: id}, document.Document{
		"patientId": fhir.RefID(rec.PatientReference),
		"code":      rec.Code,
		"category":  rec.Category,
	})
	return doc, created, nil
}

// LabResults answers a transaction Bundle and stores each Observation entry
// in a single transaction.
func (s *Service) LabResults(ctx context.Context, payload document.Document) (document.Document, error) {
	bundle := document.Document{
		"resourceType": "Bundle",
		"type":         payload.Value("type", fhir.BundleTypeTransactionResponse),
		"entry": document.EnsureList(payload["entry"], []interface{}{
			fhir.ResponseEntry("201 Created", fhir.Ref("Observation", ident.Generate("obs"))),
		}),
	}

	var batch []*Observation
	for _, res := range fhir.EntryResources(payload) {
		if res.String("resourceType", "") != "Observation" {
			continue
		}
		batch = append(batch, flatten(ident.FromValue("obs", res["id"]), res))
	}
	if err := s.repo.UpsertAll(ctx, batch); err != nil {
		return nil, err
	}
	if len(batch) > 0 {
		s.events.Emit(ctx, "observation.batch.processed.v1", events.Subject{Type: "Bundle"},
			document.Document{"observationCount": len(batch)})
	}
	return bundle, nil
}

func queryFloat(query url.Values, key string) float64 {
	f, err := strconv.ParseFloat(query.Get(key), 64)
	if err != nil {
		return 0
	}
	return f
}

// Trends plots the stored observations of a patient. Without matches a
// single point is built from the value and status query parameters.
func (s *Service) Trends(ctx context.Context, patientID string, query url.Values) (document.Document, error) {
	rows, err := s.repo.Trend(ctx, TrendQuery{
		PatientID: patientID,
		Code:      query.Get("code"),
		Category:  query.Get("category"),
	})
	if err != nil {
		return nil, err
	}

	points := make([]interface{}, 0, len(rows))
	for _, o := range rows {
		value, _ := document.ExtractQuantity(o.Data)
		ts := isotime.Format(o.EffectiveDateTime)
		if ts == "" {
			ts = isotime.NowISO()
		}
		status := o.Status
		if status == "" {
			status = "unknown"
		}
		points = append(points, document.Document{"timestamp": ts, "value": value, "status": status})
	}
	if len(points) == 0 {
		status := "normal"
		if query.Has("status") {
			status = query.Get("status")
		}
		points = append(points, document.Document{
			"timestamp": isotime.NowISO(),
			"value":     queryFloat(query, "value"),
			"status":    status,
		})
	}

	q := document.FromQuery(query)
	return document.Document{
		"patientId":       patientID,
		"observationType": q.Value("observationType", "glucose"),
		"unit":            q.Value("unit", "mg/dL"),
		"timeRange": document.Document{
			"start": q.Value("start", isotime.NowISO()),
			"end":   q.Value("end", isotime.NowISO()),
		},
		"dataPoints": points,
		"referenceRanges": document.Document{
			"low":  queryFloat(query, "low"),
			"high": queryFloat(query, "high"),
		},
	}, nil
}

func (s *Service) ConfigureAlert(ctx context.Context, payload document.Document) (document.Document, error) {
	a := &AlertConfig{
		PatientID:            ident.FromValue("patient", payload["patientId"]),
		ObservationCode:      payload.String("observationCode", "unknown"),
		Thresholds:           payload.Value("thresholds", document.Document{}),
		NotificationChannels: document.EnsureList(payload["notificationChannels"], document.Strings("email", "sms", "app")),
		Active:               document.Truthy(payload.Value("active", true)),
	}
	if _, err := s.repo.UpsertAlert(ctx, a); err != nil {
		return nil, err
	}

	status := "disabled"
	if a.Active {
		status = "configured"
	}
	s.events.Emit(ctx, "observation.alert.configured.v1", events.Subject{Type: "Patient", ID: a.PatientID},
		document.Document{"observationCode": a.ObservationCode, "active": a.Active})
	return document.Document{
		"patientId":            a.PatientID,
		"observationCode":      a.ObservationCode,
		"status":               status,
		"notificationChannels": a.NotificationChannels,
	}, nil
}
