package services

import (
	"time"

	"gorm.io/gorm"

	"complytrail/internal/models"
)

// Actor identifies the authenticated user performing a mutation, as recorded
// on every audit entry.
type Actor struct {
	ID    string
	Email string
}

// Change describes one committed row mutation for the change recorder.
// Before is nil for inserts, After is nil for deletes.
type Change struct {
	OrganizationID   string
	TableName        string
	RecordID         string
	Action           models.AuditAction
	Before           map[string]interface{}
	After            map[string]interface{}
	Actor            Actor
	RestoreRequestID *string
}

// ChangeRecorder appends audit entries. Record runs inside the caller's
// transaction: if the append fails, the triggering mutation must fail too.
type ChangeRecorder interface {
	Record(tx *gorm.DB, change Change) (*models.AuditEntry, error)
}

// TrailQuery holds the filters for one audit trail page.
type TrailQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Cursor    string
}

// TrailPage is one page of audit entries, newest first.
type TrailPage struct {
	Entries    []models.AuditEntry `json:"entries"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// AuditTrailServicer is the read path for the activity timeline.
type AuditTrailServicer interface {
	GetAuditTrail(userID, organizationID string, query TrailQuery) (*TrailPage, error)
}

// SessionSummary tallies a session's mutations by action.
type SessionSummary struct {
	Inserts int `json:"inserts"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// UserActivity is one contiguous burst of a user's changes, bounded by an
// inactivity gap. Computed on read, never stored.
type UserActivity struct {
	SessionID      string         `json:"session_id"`
	UserID         string         `json:"user_id"`
	UserEmail      string         `json:"user_email"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	AffectedTables []string       `json:"affected_tables"`
	Summary        SessionSummary `json:"summary"`
	ChangeCount    int            `json:"change_count"`
}

// UserActivityServicer groups audit entries into per-user sessions.
type UserActivityServicer interface {
	GetUserActivity(userID, organizationID string, startDate, endDate time.Time) ([]UserActivity, error)
}

// RestorePoint is a candidate timestamp an organization can be rolled back
// to. Derived from the audit log, never persisted.
type RestorePoint struct {
	OrganizationID string    `json:"organization_id"`
	Timestamp      time.Time `json:"timestamp"`
	Label          string    `json:"label"`
}

// RestorePointServicer derives restorable timestamps from the audit log.
type RestorePointServicer interface {
	GetRestorePoints(userID, organizationID string, windowDays int) ([]RestorePoint, error)
}

// RestoreRequestInput is an operator-initiated restore workflow instance.
// ExpectedChanges carries the TotalChanges of the preview the operator
// confirmed; PerformRestore fails with STALE_PREVIEW when the live change
// set no longer matches it.
type RestoreRequestInput struct {
	OrganizationID  string
	RestoreType     models.RestoreType
	TargetTimestamp time.Time
	TargetTable     string
	TargetRecordID  string
	Reason          string
	ExpectedChanges int
}

// RestorePreview is the read-only result of computing what a restore would
// change.
type RestorePreview struct {
	TotalChanges int            `json:"total_changes"`
	Breakdown    map[string]int `json:"breakdown"`
	Stale        bool           `json:"stale"`
}

// RestoreResult is the outcome of an applied restore.
type RestoreResult struct {
	RequestID        string   `json:"request_id"`
	Success          bool     `json:"success"`
	RestoredCount    int      `json:"restored_count"`
	NewAuditEntryIDs []string `json:"new_audit_entry_ids,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// RestoreServicer is the preview-then-confirm restore state machine.
type RestoreServicer interface {
	PreviewRestore(userID string, req RestoreRequestInput) (*RestorePreview, error)
	PerformRestore(userID string, req RestoreRequestInput) (*RestoreResult, error)
}

// ComplianceServicer is the write path for tracked compliance entities.
// Every mutation is recorded through the change recorder in the same
// transaction; it carries no business logic beyond ownership checks.
type ComplianceServicer interface {
	CreateRequirement(actor Actor, organizationID string, req *models.Requirement) (*models.Requirement, error)
	UpdateRequirement(actor Actor, organizationID, requirementID string, updates map[string]interface{}) (*models.Requirement, error)
	DeleteRequirement(actor Actor, organizationID, requirementID string) error
	GetRequirement(organizationID, requirementID string) (*models.Requirement, error)

	CreateAssessment(actor Actor, organizationID string, a *models.Assessment) (*models.Assessment, error)
	UpdateAssessment(actor Actor, organizationID, assessmentID string, updates map[string]interface{}) (*models.Assessment, error)
	DeleteAssessment(actor Actor, organizationID, assessmentID string) error

	CreateDocument(actor Actor, organizationID string, d *models.ComplianceDocument) (*models.ComplianceDocument, error)
	UpdateDocument(actor Actor, organizationID, documentID string, updates map[string]interface{}) (*models.ComplianceDocument, error)
	DeleteDocument(actor Actor, organizationID, documentID string) error
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	CreateOrganization(ownerID, name string) (*models.Organization, error)
	AddMember(organizationID, userID string, role models.OrgRole) (*models.OrgMember, error)
}
