package audit

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

// Event maps to audit_events. Data holds the full event as logged and is
// the input of the immutable hash.
type Event struct {
	AuditID       string
	EventType     string
	UserID        string
	ResourceType  string
	ResourceID    string
	Action        string
	OccurredAt    *time.Time
	ImmutableHash string
	Data          document.Document
}

type Export struct {
	ExportID    string
	Status      string
	Format      string
	DownloadURL string
	Parameters  document.Document
}

type Anomaly struct {
	AnomalyID   string
	UserID      string
	AnomalyType string
	Description string
	Severity    string
	Score       float64
	DetectedAt  *time.Time
	Data        document.Document
}

// AnomalyQuery filters ListAnomalies. Empty fields match everything.
type AnomalyQuery struct {
	UserID   string
	Severity string
	Limit    int
	Offset   int
}

func (a *Anomaly) view() document.Document {
	return document.Document{
		"anomalyId":   a.AnomalyID,
		"type":        a.AnomalyType,
		"userId":      a.UserID,
		"description": a.Description,
		"severity":    a.Severity,
		"score":       a.Score,
		"timestamp":   isotime.Format(a.DetectedAt),
	}
}

func sampleAnomaly() document.Document {
	return document.Document{
		"type":        "unusual_access_pattern",
		"userId":      "user-uuid-123",
		"description": "Access to 50+ patient records in 1 hour",
		"severity":    "medium",
		"timestamp":   "2023-09-01T02:00:00Z",
		"score":       0.75,
	}
}
