package access

import (
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
)

// Assignment maps to the role_assignments table.
type Assignment struct {
	AssignmentID  string
	UserID        string
	Status        string
	Roles         []interface{}
	Permissions   []interface{}
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	Reason        string
}

// Evaluation is one access decision, appended to abac_evaluations.
type Evaluation struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Action       string
	Decision     string
	Context      document.Document
}
