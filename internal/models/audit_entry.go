package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"complytrail/internal/uuid"

	"gorm.io/gorm"
)

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	ActionInsert AuditAction = "INSERT"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// FieldList is a JSON-encoded list of field names stored in a text column.
type FieldList []string

// Value implements driver.Valuer.
func (f FieldList) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (f *FieldList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), f)
	case []byte:
		return json.Unmarshal(v, f)
	default:
		return fmt.Errorf("cannot scan %T into FieldList", value)
	}
}

// AuditEntry is one immutable record of a single-row mutation. Entries are
// append-only: the model intentionally has no UpdatedAt or DeletedAt, and no
// service exposes an update or delete path for it before retention expiry.
type AuditEntry struct {
	ID               string      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID   string      `gorm:"type:uuid;not null;index:idx_audit_org_created,priority:1" json:"organization_id"`
	TableName        string      `gorm:"not null" json:"table_name"`
	RecordID         string      `gorm:"type:uuid;not null;index" json:"record_id"`
	Action           AuditAction `gorm:"not null" json:"action"`
	ChangedFields    FieldList   `gorm:"type:text" json:"changed_fields"`
	BeforeValue      *string     `json:"before_value,omitempty"`
	AfterValue       *string     `json:"after_value,omitempty"`
	UserID           string      `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail        string      `json:"user_email"`
	RestoreRequestID *string     `gorm:"type:uuid" json:"restore_request_id,omitempty"`
	CreatedAt        time.Time   `gorm:"index:idx_audit_org_created,priority:2" json:"created_at"`
}

// BeforeCreate generates a UUIDv7 so (created_at, id) ordering matches
// insertion order even for entries sharing a timestamp.
func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New()
	}
	return nil
}
