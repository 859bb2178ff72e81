package patient

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/pkg/pagination"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `patient_id, identifier, name, birth_date, gender, data`

func scanPatient(row interface{ Scan(...interface{}) error }) (*Patient, error) {
	var (
		p   Patient
		raw []byte
	)
	if err := row.Scan(&p.PatientID, &p.Identifier, &p.Name, &p.BirthDate, &p.Gender, &raw); err != nil {
		return nil, err
	}
	p.Data = document.Decode(raw)
	return &p, nil
}

func (r *patientRepoPG) Upsert(ctx context.Context, p *Patient) (bool, error) {
	return db.Upsert{
		Table:    "patients",
		Conflict: []string{"patient_id"},
		Columns:  []string{"patient_id", "identifier", "name", "birth_date", "gender", "data"},
		Values:   []interface{}{p.PatientID, p.Identifier, p.Name, p.BirthDate, p.Gender, db.JSON(p.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *patientRepoPG) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, patientID))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return p, nil
}

func (r *patientRepoPG) Search(ctx context.Context, params SearchParams, page pagination.Params) ([]*Patient, error) {
	f := db.NewFilter("patients", patientCols)
	if params.Identifier != "" {
		f.Contains("identifier", params.Identifier)
	}
	f.AnyContains("name", params.Names)
	if params.BirthDate != nil {
		f.SameDate("birth_date", *params.BirthDate)
	}
	if params.Gender != "" {
		f.EqualFold("gender", params.Gender)
	}
	f.OrderBy("created_at").Page(page.Limit, page.Offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, f.SQL(), f.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *patientRepoPG) CreateMergeEvent(ctx context.Context, ev *MergeEvent) error {
	return db.Insert{
		Table:   "patient_merge_events",
		Columns: []string{"source_patient_id", "target_patient_id", "audit_id", "payload"},
		Values:  []interface{}{ev.SourcePatientID, ev.TargetPatientID, ev.AuditID, db.JSON(ev.Payload)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}

func (r *patientRepoPG) UpsertExport(ctx context.Context, ex *Export) (bool, error) {
	sections := ex.IncludeSections
	if sections == nil {
		sections = []string{}
	}
	return db.Upsert{
		Table:    "patient_exports",
		Conflict: []string{"export_id"},
		Columns:  []string{"export_id", "patient_id", "status", "format", "include_sections", "data"},
		Values:   []interface{}{ex.ExportID, ex.PatientID, ex.Status, ex.Format, db.JSON(sections), db.JSON(ex.Data)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
}
