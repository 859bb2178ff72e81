package telemedicine

import (
	"context"

	"github.com/ehr/fhirportal/internal/platform/document"
)

type TelemedicineRepository interface {
	UpsertSession(ctx context.Context, s *Session) (bool, error)
	// UpdateSettings replaces the settings of an existing session and
	// reports whether one was found.
	UpdateSettings(ctx context.Context, sessionID string, settings document.Document) (bool, error)
	UpsertConsent(ctx context.Context, c *Consent) (bool, error)
}
