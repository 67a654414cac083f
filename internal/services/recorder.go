package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
)

// trackedTables is the registry of tables whose mutations are audited and
// restorable. Restore reversals refuse to touch anything outside this set.
var trackedTables = map[string]bool{
	"requirements":         true,
	"assessments":          true,
	"compliance_documents": true,
}

// IsTrackedTable reports whether mutations to the named table are audited.
func IsTrackedTable(name string) bool {
	return trackedTables[name]
}

// TrackedTables returns the tracked table names in sorted order.
func TrackedTables() []string {
	names := make([]string, 0, len(trackedTables))
	for name := range trackedTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot converts an entity into the column map stored on audit entries.
func Snapshot(entity interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// changeRecorder appends one immutable audit entry per recorded mutation.
type changeRecorder struct{}

// NewChangeRecorder creates a new ChangeRecorder.
func NewChangeRecorder() ChangeRecorder {
	return &changeRecorder{}
}

// Record appends exactly one AuditEntry inside the caller's transaction.
// It never retries or deduplicates. Any error propagates to the caller so
// the surrounding transaction rolls back: a mutation without its audit entry
// must not become durable.
func (r *changeRecorder) Record(tx *gorm.DB, change Change) (*models.AuditEntry, error) {
	if change.OrganizationID == "" || change.RecordID == "" || change.Actor.ID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "organization, record, and actor are required for audit entries")
	}
	if !IsTrackedTable(change.TableName) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("table %q is not tracked for auditing", change.TableName))
	}

	switch change.Action {
	case models.ActionInsert:
		if change.After == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "insert entries require an after snapshot")
		}
	case models.ActionUpdate:
		if change.Before == nil || change.After == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "update entries require before and after snapshots")
		}
	case models.ActionDelete:
		if change.Before == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "delete entries require a before snapshot")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown audit action")
	}

	entry := &models.AuditEntry{
		OrganizationID:   change.OrganizationID,
		TableName:        change.TableName,
		RecordID:         change.RecordID,
		Action:           change.Action,
		UserID:           change.Actor.ID,
		UserEmail:        change.Actor.Email,
		RestoreRequestID: change.RestoreRequestID,
	}

	if change.Action == models.ActionUpdate {
		entry.ChangedFields = changedFields(change.Before, change.After)
	}

	var err error
	if entry.BeforeValue, err = marshalSnapshot(change.Before); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if entry.AfterValue, err = marshalSnapshot(change.After); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// changedFields returns the sorted names of fields whose values differ
// between the two snapshots.
func changedFields(before, after map[string]interface{}) models.FieldList {
	fields := make([]string, 0)
	seen := make(map[string]bool, len(before))
	for name := range before {
		seen[name] = true
		if !valuesEqual(before[name], after[name]) {
			fields = append(fields, name)
		}
	}
	for name := range after {
		if !seen[name] && after[name] != nil {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

func valuesEqual(a, b interface{}) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

func marshalSnapshot(snapshot map[string]interface{}) (*string, error) {
	if snapshot == nil {
		return nil, nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
