package gateway

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirportal/internal/platform/db"
)

type gatewayRepoPG struct{ pool *pgxpool.Pool }

func NewGatewayRepoPG(pool *pgxpool.Pool) GatewayRepository {
	return &gatewayRepoPG{pool: pool}
}

func (r *gatewayRepoPG) LogRequest(ctx context.Context, req *Request) error {
	_, err := db.Upsert{
		Table:    "fhir_gateway_requests",
		Conflict: []string{"request_id"},
		Columns:  []string{"request_id", "resource_type", "resource_id", "method", "status_code", "response_payload"},
		Values: []interface{}{req.RequestID, req.ResourceType, req.ResourceID, req.Method, req.StatusCode,
			db.JSON(req.ResponsePayload)},
	}.Exec(ctx, db.Conn(ctx, r.pool))
	return err
}
