package gateway

import "context"

type GatewayRepository interface {
	LogRequest(ctx context.Context, r *Request) error
}
