package models

import "time"

// AssessmentStatus is the lifecycle state of a compliance assessment.
type AssessmentStatus string

const (
	AssessmentStatusOpen      AssessmentStatus = "open"
	AssessmentStatusInReview  AssessmentStatus = "in_review"
	AssessmentStatusCompleted AssessmentStatus = "completed"
)

// Assessment is a compliance assessment run against a standard for an
// organization, grouping the requirements under evaluation.
type Assessment struct {
	Base
	OrganizationID string           `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string           `gorm:"not null" json:"name"`
	Standard       string           `gorm:"not null" json:"standard"`
	Status         AssessmentStatus `gorm:"not null;default:open" json:"status"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
}

// TableName overrides the table name used by GORM.
func (Assessment) TableName() string { return "assessments" }
