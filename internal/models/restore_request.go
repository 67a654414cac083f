package models

import "time"

// RestoreType scopes what a restore request rolls back.
type RestoreType string

const (
	RestoreTimePoint    RestoreType = "TIME_POINT"
	RestoreSingleRecord RestoreType = "SINGLE_RECORD"
	RestoreTable        RestoreType = "TABLE"
)

// RestoreStatus is the persisted state of a restore request. DRAFTED and
// PREVIEWED exist only on the caller's side: previews are pure reads and are
// never written to the database.
type RestoreStatus string

const (
	RestoreStatusConfirmed RestoreStatus = "CONFIRMED"
	RestoreStatusApplying  RestoreStatus = "APPLYING"
	RestoreStatusCompleted RestoreStatus = "COMPLETED"
	RestoreStatusFailed    RestoreStatus = "FAILED"
)

// RestoreRequest records every attempted restore, including failed and stale
// ones, so the restore path itself is auditable.
type RestoreRequest struct {
	Base
	OrganizationID  string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	RestoreType     RestoreType   `gorm:"not null" json:"restore_type"`
	TargetTimestamp time.Time     `gorm:"not null" json:"target_timestamp"`
	TargetTable     string        `json:"target_table,omitempty"`
	TargetRecordID  string        `gorm:"type:uuid" json:"target_record_id,omitempty"`
	Reason          string        `gorm:"not null" json:"reason"`
	RequestedBy     string        `gorm:"type:uuid;not null" json:"requested_by"`
	ExpectedChanges int           `json:"expected_changes"`
	Status          RestoreStatus `gorm:"not null;index" json:"status"`
	RestoredCount   int           `json:"restored_count"`
	Errors          FieldList     `gorm:"type:text" json:"errors,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}

// TableName overrides the table name used by GORM.
func (RestoreRequest) TableName() string { return "restore_requests" }
