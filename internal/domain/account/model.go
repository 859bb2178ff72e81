package account

import "github.com/ehr/fhirportal/internal/platform/document"

// Event types recorded in auth_events.
const (
	EventLogin         = "login"
	EventRegister      = "register"
	EventPasswordReset = "password_reset"
	EventMFASetup      = "mfa_setup"
)

// AuthEvent maps to the append-only auth_events table.
type AuthEvent struct {
	UserID     string
	EventType  string
	Username   string
	DeviceInfo interface{}
	Metadata   document.Document
}

func stringList(list []interface{}) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
