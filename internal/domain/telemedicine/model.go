package telemedicine

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
)

// Session maps to the telemedicine_sessions table.
type Session struct {
	SessionID         string
	AppointmentID     string
	SessionType       string
	ScheduledStart    *time.Time
	EstimatedDuration *int
	JoinURLs          interface{}
	Settings          interface{}
}

// Consent maps to telemedicine_consents, keyed by session, user and
// consent type.
type Consent struct {
	SessionID   string
	UserID      string
	ConsentType string
	Granted     bool
	RecordedAt  *time.Time
	IPAddress   string
}

func defaultJoinURLs() document.Document {
	return document.Document{
		"patient":  "https://telemedicine.example.com/join/patient-token",
		"provider": "https://telemedicine.example.com/join/provider-token",
	}
}

func defaultSettings() document.Document {
	return document.Document{
		"recordingEnabled":   false,
		"chatEnabled":        true,
		"screenShareEnabled": true,
	}
}
