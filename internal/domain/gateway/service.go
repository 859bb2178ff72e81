package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
)

// PatientReader resolves stored Patient resources.
type PatientReader interface {
	Get(ctx context.Context, patientID string) (document.Document, error)
}

type Service struct {
	repo     GatewayRepository
	patients PatientReader
	caps     *fhir.CapabilityBuilder
	log      zerolog.Logger
}

func NewService(repo GatewayRepository, patients PatientReader, caps *fhir.CapabilityBuilder, log zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, caps: caps, log: log.With().Str("domain", "gateway").Logger()}
}

func (s *Service) Metadata(query url.Values) document.Document {
	return s.caps.Build(query)
}

// ReadPatient serves the stored Patient when one exists and a sample
// resource otherwise.
func (s *Service) ReadPatient(ctx context.Context, patientID string, query url.Values) (document.Document, error) {
	var res document.Document
	if s.patients != nil {
		stored, err := s.patients.Get(ctx, patientID)
		switch {
		case err == nil:
			res = document.Clone(stored)
			res["id"] = patientID
			if !res.Has("meta") {
				res["meta"] = fhir.NewMeta("1")
			}
		case !db.IsNotFound(err):
			return nil, err
		}
	}
	if res == nil {
		version := "1"
		if query.Has("versionId") {
			version = query.Get("versionId")
		}
		res = samplePatient(patientID, version, query["identifier"])
	}

	s.record(ctx, http.MethodGet, "Patient", patientID, res)
	return res, nil
}

// Batch answers a batch Bundle. Without entries the response carries one
// successful Patient entry.
func (s *Service) Batch(ctx context.Context, payload document.Document) document.Document {
	bundle := fhir.ResponseBundle(payload, fhir.BundleTypeBatchResponse,
		fhir.ResponseEntry("200", fhir.Ref("Patient", ident.Generate("patient"))))
	s.record(ctx, http.MethodPost, "Bundle", "", bundle)
	return bundle
}

func (s *Service) record(ctx context.Context, method, resourceType, resourceID string, payload document.Document) {
	req := &Request{
		RequestID:       ident.Generate("fhir-request"),
		ResourceType:    resourceType,
		ResourceID:      resourceID,
		Method:          method,
		StatusCode:      http.StatusOK,
		ResponsePayload: payload,
	}
	if err := s.repo.LogRequest(ctx, req); err != nil {
		s.log.Warn().Err(err).Str("resource_type", resourceType).Msg("gateway request not logged")
	}
}
