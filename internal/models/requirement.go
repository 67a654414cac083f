package models

// RequirementStatus tracks fulfilment of a single control requirement.
type RequirementStatus string

const (
	RequirementStatusDraft              RequirementStatus = "draft"
	RequirementStatusFulfilled          RequirementStatus = "fulfilled"
	RequirementStatusPartiallyFulfilled RequirementStatus = "partially-fulfilled"
	RequirementStatusNotApplicable      RequirementStatus = "not-applicable"
)

// Requirement is a single control requirement from a compliance standard
// (e.g. an ISO 27001 control) tracked per organization.
type Requirement struct {
	Base
	OrganizationID string            `gorm:"type:uuid;not null;index" json:"organization_id"`
	AssessmentID   *string           `gorm:"type:uuid;index" json:"assessment_id,omitempty"`
	ControlID      string            `gorm:"not null" json:"control_id"`
	Title          string            `gorm:"not null" json:"title"`
	Description    string            `json:"description"`
	Status         RequirementStatus `gorm:"not null;default:draft" json:"status"`
	Notes          string            `json:"notes"`
}

// TableName overrides the table name used by GORM.
func (Requirement) TableName() string { return "requirements" }
