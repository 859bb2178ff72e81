package account

import "context"

type AccountRepository interface {
	CreateEvent(ctx context.Context, ev *AuthEvent) error
}
