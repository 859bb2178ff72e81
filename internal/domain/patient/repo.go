package patient

import (
	"context"

	"github.com/ehr/fhirportal/pkg/pagination"
)

type PatientRepository interface {
	Upsert(ctx context.Context, p *Patient) (bool, error)
	GetByID(ctx context.Context, patientID string) (*Patient, error)
	Search(ctx context.Context, params SearchParams, page pagination.Params) ([]*Patient, error)
	CreateMergeEvent(ctx context.Context, ev *MergeEvent) error
	UpsertExport(ctx context.Context, ex *Export) (bool, error)
}
