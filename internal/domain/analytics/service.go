package analytics

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   AnalyticsRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo AnalyticsRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "analytics").Logger()}
}

func (s *Service) RiskScore(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"patientId":       payload.Value("patientId", ident.Generate("patient")),
		"riskType":        payload.Value("riskType", "diabetes"),
		"score":           payload.Float("score", 0.75),
		"level":           payload.Value("level", "high"),
		"confidence":      payload.Float("confidence", 0.89),
		"factors":         document.EnsureList(payload["factors"], []interface{}{}),
		"recommendations": document.EnsureList(payload["recommendations"], document.Strings("Regular monitoring")),
		"calculatedAt":    payload.Value("calculatedAt", isotime.NowISO()),
	}

	rs := &RiskScore{
		PatientID:       doc.String("patientId", ""),
		RiskType:        doc.String("riskType", ""),
		Score:           doc.Float("score", 0),
		Level:           doc.String("level", ""),
		Confidence:      doc.Float("confidence", 0),
		Factors:         doc.List("factors"),
		Recommendations: doc.List("recommendations"),
	}
	if _, err := s.repo.UpsertRiskScore(ctx, rs); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "risk.calculated.v1", events.Subject{Type: "Patient", ID: rs.PatientID}, document.Document{
		"riskType": rs.RiskType,
		"score":    rs.Score,
		"level":    rs.Level,
	})
	return doc, nil
}

// TrainModel accepts the job either nested under "trainingJob" or as the
// whole body.
func (s *Service) TrainModel(ctx context.Context, payload document.Document) (document.Document, error) {
	job, ok := document.AsMap(payload["trainingJob"])
	if !ok {
		job = payload
	}

	doc := document.Document{
		"trainingJobId":       ident.FromValue("job", job["trainingJobId"]),
		"status":              job.Value("status", "running"),
		"estimatedCompletion": job.Value("estimatedCompletion", isotime.NowISO()),
		"datasetInfo":         document.Merge(datasetInfoTemplate(), job.Map("datasetInfo")),
		"progress":            document.Merge(progressTemplate(), job.Map("progress")),
	}

	j := &TrainingJob{
		TrainingJobID: doc.String("trainingJobId", ""),
		ModelName:     job.String("modelName", ""),
		ModelType:     job.String("modelType", ""),
		Status:        doc.String("status", ""),
		Configuration: job,
		Progress:      doc["progress"],
	}
	if _, err := s.repo.UpsertTrainingJob(ctx, j); err != nil {
		return nil, err
	}
	s.log.Info().Str("training_job_id", j.TrainingJobID).Str("model_type", j.ModelType).Msg("training job accepted")
	s.events.Emit(ctx, "model.training.requested.v1", events.Subject{Type: "TrainingJob", ID: j.TrainingJobID}, document.Document{
		"modelName": j.ModelName,
		"modelType": j.ModelType,
		"status":    j.Status,
	})
	return doc, nil
}

func (s *Service) PersonalizedAlert(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"alertId":             ident.FromValue("alert", payload["alertId"]),
		"patientId":           payload.Value("patientId", ident.Generate("patient")),
		"riskAssessment":      document.Merge(riskAssessmentTemplate(), payload.Map("riskAssessment")),
		"contributingFactors": document.EnsureList(payload["contributingFactors"], []interface{}{}),
		"recommendations":     document.EnsureList(payload["recommendations"], []interface{}{}),
		"fhirResources":       document.EnsureList(payload["fhirResources"], []interface{}{}),
	}

	a := &Alert{
		AlertID:       doc.String("alertId", ""),
		PatientID:     doc.String("patientId", ""),
		ModelID:       payload.String("modelId", ""),
		Configuration: payload.Value("alertConfiguration", document.Document{}),
		Assessment:    doc["riskAssessment"],
	}
	if _, err := s.repo.UpsertAlert(ctx, a); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "alert.generated.v1", events.Subject{Type: "Patient", ID: a.PatientID}, document.Document{
		"alertId":   a.AlertID,
		"riskLevel": doc.Map("riskAssessment")["riskLevel"],
	})
	return doc, nil
}

func (s *Service) ModelVersion(ctx context.Context, modelID string, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"modelVersionId":      ident.FromValue("model-version", payload["modelVersionId"]),
		"status":              payload.Value("status", "deployed"),
		"deploymentTimestamp": payload.Value("deploymentTimestamp", isotime.NowISO()),
		"performanceComparison": document.Merge(
			document.Document{"previousVersion": document.Document{}, "improvement": document.Document{}},
			payload.Map("performanceComparison"),
		),
		"productionMetrics": document.Merge(
			document.Document{"predictionLatency": nil, "throughput": nil, "errorRate": nil},
			payload.Map("productionMetrics"),
		),
		"modelId": modelID,
	}

	j := &TrainingJob{
		TrainingJobID: modelID + ":" + doc.String("modelVersionId", ""),
		ModelName:     modelID,
		ModelType:     payload.String("modelType", ""),
		Status:        doc.String("status", ""),
		Configuration: payload.Value("deploymentConfig", document.Document{}),
		Progress:      doc["productionMetrics"],
	}
	if _, err := s.repo.UpsertTrainingJob(ctx, j); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "model.version.deployed.v1", events.Subject{Type: "Model", ID: modelID}, document.Document{
		"modelVersionId": doc["modelVersionId"],
		"status":         j.Status,
	})
	return doc, nil
}

// Trends builds one trend per repeated "metric" query parameter, reading
// "<metric>.current", "<metric>.previous" and friends for the figures.
func (s *Service) Trends(ctx context.Context, query url.Values) (document.Document, error) {
	q := document.FromQuery(query)
	now := isotime.NowISO()

	metrics := query["metric"]
	trends := make([]interface{}, 0, len(metrics))
	for _, m := range metrics {
		trends = append(trends, trend(m,
			q.Float(m+".current", 0),
			q.Float(m+".previous", 0),
			q.Float(m+".changePercent", 0),
			q.String(m+".trend", "stable"),
			q.String(m+".significance", "n/a"),
		))
	}
	if len(trends) == 0 {
		trends = append(trends, trend("readmission_rate", 0, 0, 0, "stable", "n/a"))
	}

	doc := document.Document{
		"analysisId":   q.Value("analysisId", ident.Generate("trend-analysis")),
		"timeRange":    document.Document{"start": q.Value("start", now), "end": q.Value("end", now)},
		"trends":       trends,
		"correlations": []interface{}{},
		"anomalies":    []interface{}{},
	}

	if _, err := s.repo.UpsertTrendRequest(ctx, &TrendRequest{
		AnalysisID:   doc.String("analysisId", ""),
		Parameters:   q,
		Trends:       trends,
		Correlations: []interface{}{},
		Anomalies:    []interface{}{},
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// LinkFHIR attaches model output to FHIR resources, defaulting to a single
// RiskAssessment for the patient.
func (s *Service) LinkFHIR(ctx context.Context, payload document.Document) (document.Document, error) {
	patient := payload.String("patientId", ident.Generate("patient"))
	assessment := document.Document{
		"resourceType": "RiskAssessment",
		"id":           ident.Generate("risk-assessment"),
		"status":       "final",
		"subject":      document.Document{"reference": fhir.Ref("Patient", patient)},
		"performer":    document.Document{"reference": "Device/ml-model-device"},
		"prediction": []interface{}{document.Document{
			"outcome":            document.Document{"coding": []interface{}{}},
			"probabilityDecimal": 0.0,
		}},
	}

	doc := document.Document{
		"linkingId":     ident.FromValue("fhir-link", payload["linkingId"]),
		"fhirResources": document.EnsureList(payload["fhirResources"], []interface{}{assessment}),
		"auditTrail": document.Merge(document.Document{
			"createdBy":     "ml-system",
			"createdAt":     isotime.NowISO(),
			"modelVersion":  payload.Value("modelId", "1.0.0"),
			"inputFeatures": payload.Value("inputFeatures", 0),
			"confidence":    payload.Value("confidence", 0.0),
		}, payload.Map("auditTrail")),
	}

	l := &FHIRLink{
		LinkingID:     doc.String("linkingId", ""),
		PatientID:     payload.String("patientId", ""),
		ModelID:       payload.String("modelId", ""),
		FHIRResources: doc.List("fhirResources"),
		AuditTrail:    doc["auditTrail"],
	}
	if _, err := s.repo.UpsertFHIRLink(ctx, l); err != nil {
		return nil, err
	}
	s.log.Debug().Str("linking_id", l.LinkingID).Int("resources", len(l.FHIRResources)).Msg("prediction linked")
	return doc, nil
}
