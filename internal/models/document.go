package models

// ComplianceDocument is a policy or evidence document attached to an
// organization's compliance program.
type ComplianceDocument struct {
	Base
	OrganizationID string  `gorm:"type:uuid;not null;index" json:"organization_id"`
	AssessmentID   *string `gorm:"type:uuid;index" json:"assessment_id,omitempty"`
	Title          string  `gorm:"not null" json:"title"`
	DocumentType   string  `json:"document_type"`
	StorageKey     string  `json:"storage_key"`
	Version        int     `gorm:"default:1" json:"version"`
}

// TableName overrides the table name used by GORM.
func (ComplianceDocument) TableName() string { return "compliance_documents" }
