package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/logger"
	"complytrail/internal/models"
	"complytrail/internal/permissions"
)

// restoreService orchestrates the preview-then-confirm restore workflow.
// Previews are pure reads; PerformRestore persists a restore_requests row for
// every attempt (stale and failed ones included) and applies all reversals in
// a single transaction.
type restoreService struct {
	db            *gorm.DB
	gate          permissions.Gate
	recorder      ChangeRecorder
	retentionDays int

	// applying serializes restores per organization within this process;
	// the APPLYING status check on restore_requests covers other processes.
	mu       sync.Mutex
	applying map[string]bool
}

// NewRestoreService creates a new RestoreServicer.
func NewRestoreService(db *gorm.DB, gate permissions.Gate, recorder ChangeRecorder, retentionDays int) RestoreServicer {
	return &restoreService{
		db:            db,
		gate:          gate,
		recorder:      recorder,
		retentionDays: retentionDays,
		applying:      make(map[string]bool),
	}
}

// PreviewRestore computes what a restore to the target timestamp would undo,
// without mutating anything. Repeatable: identical arguments with no
// intervening writes yield an identical preview.
func (s *restoreService) PreviewRestore(userID string, req RestoreRequestInput) (*RestorePreview, error) {
	if err := s.authorize(userID, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkTargetExists(req); err != nil {
		return nil, err
	}

	type tableCount struct {
		TableName string
		N         int
	}
	var counts []tableCount
	err := s.changeSet(req).
		Select("table_name, count(*) as n").
		Group("table_name").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	preview := &RestorePreview{Breakdown: make(map[string]int)}
	for _, c := range counts {
		preview.Breakdown[c.TableName] = c.N
		preview.TotalChanges += c.N
	}
	// A re-preview carrying the previous total reveals drift to the caller.
	preview.Stale = req.ExpectedChanges > 0 && req.ExpectedChanges != preview.TotalChanges
	return preview, nil
}

// PerformRestore applies the confirmed restore. The request must carry the
// ExpectedChanges total from the preview the operator saw; if the live change
// set has drifted, the restore fails with STALE_PREVIEW instead of silently
// restoring against moved data. Reversals run newest-first in one
// transaction: either every row is restored or none are.
func (s *restoreService) PerformRestore(userID string, req RestoreRequestInput) (*RestoreResult, error) {
	if err := s.authorize(userID, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkTargetExists(req); err != nil {
		return nil, err
	}

	if !s.acquire(req.OrganizationID) {
		return nil, apperrors.ErrRestoreInProgress
	}
	defer s.release(req.OrganizationID)

	actor, err := s.actorFor(userID)
	if err != nil {
		return nil, err
	}

	row := &models.RestoreRequest{
		OrganizationID:  req.OrganizationID,
		RestoreType:     req.RestoreType,
		TargetTimestamp: req.TargetTimestamp,
		TargetTable:     req.TargetTable,
		TargetRecordID:  req.TargetRecordID,
		Reason:          req.Reason,
		RequestedBy:     userID,
		ExpectedChanges: req.ExpectedChanges,
		Status:          models.RestoreStatusConfirmed,
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Re-validate the preview before touching data.
	var total int64
	if err := s.changeSet(req).Count(&total).Error; err != nil {
		return nil, s.fail(row, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}
	if int(total) != req.ExpectedChanges {
		drift := int(total) - req.ExpectedChanges
		if drift < 0 {
			drift = -drift
		}
		msg := fmt.Sprintf("%d changes occurred since your preview; please re-preview", drift)
		return nil, s.fail(row, apperrors.WithMessage(apperrors.ErrStalePreview, msg))
	}

	started := time.Now()
	row.Status = models.RestoreStatusApplying
	row.StartedAt = &started
	if err := s.db.Model(row).Updates(map[string]interface{}{
		"status":     row.Status,
		"started_at": row.StartedAt,
	}).Error; err != nil {
		return nil, s.fail(row, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}

	var entries []models.AuditEntry
	if err := s.changeSet(req).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, s.fail(row, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}

	result := &RestoreResult{RequestID: row.ID}
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			newEntry, err := s.revert(tx, entry, row, actor)
			if err != nil {
				return fmt.Errorf("reversing %s entry %s on %s: %w", entry.Action, entry.ID, entry.TableName, err)
			}
			result.NewAuditEntryIDs = append(result.NewAuditEntryIDs, newEntry.ID)
			result.RestoredCount++
		}
		return nil
	})

	finished := time.Now()
	if txErr != nil {
		logger.Get().Errorw("restore rolled back",
			"request_id", row.ID,
			"organization_id", req.OrganizationID,
			"error", txErr.Error(),
		)
		result.Success = false
		result.RestoredCount = 0
		result.NewAuditEntryIDs = nil
		result.Errors = []string{txErr.Error()}
		s.finish(row, models.RestoreStatusFailed, result, finished)
		return result, nil
	}

	result.Success = true
	s.finish(row, models.RestoreStatusCompleted, result, finished)
	logger.Get().Infow("restore completed",
		"request_id", row.ID,
		"organization_id", req.OrganizationID,
		"restored_count", result.RestoredCount,
	)
	return result, nil
}

func (s *restoreService) authorize(userID, organizationID string) error {
	allowed, err := s.gate.CanRestoreData(userID, organizationID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrPermissionDenied
	}
	return nil
}

func (s *restoreService) validate(req RestoreRequestInput) error {
	if req.OrganizationID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "organization ID is required")
	}
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}

	now := time.Now()
	if req.TargetTimestamp.IsZero() || req.TargetTimestamp.After(now) {
		return apperrors.WithMessage(apperrors.ErrInvalidRange, "Target timestamp must be in the past")
	}
	if req.TargetTimestamp.Before(now.AddDate(0, 0, -s.retentionDays)) {
		return apperrors.WithMessage(apperrors.ErrInvalidRange, "Target timestamp is older than the audit retention period")
	}

	switch req.RestoreType {
	case models.RestoreTimePoint:
	case models.RestoreTable:
		if req.TargetTable == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "target table is required for table restores")
		}
	case models.RestoreSingleRecord:
		if req.TargetTable == "" || req.TargetRecordID == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "target table and record are required for single-record restores")
		}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown restore type")
	}
	if req.TargetTable != "" && !IsTrackedTable(req.TargetTable) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("table %q is not tracked for auditing", req.TargetTable))
	}
	return nil
}

// checkTargetExists rejects scoped restores whose target has no audit
// history at all.
func (s *restoreService) checkTargetExists(req RestoreRequestInput) error {
	if req.RestoreType == models.RestoreTimePoint {
		return nil
	}
	q := s.db.Model(&models.AuditEntry{}).
		Where("organization_id = ? AND table_name = ?", req.OrganizationID, req.TargetTable)
	if req.RestoreType == models.RestoreSingleRecord {
		q = q.Where("record_id = ?", req.TargetRecordID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n == 0 {
		return apperrors.ErrRestoreTargetNotFound
	}
	return nil
}

// changeSet is the query for entries the restore would reverse: everything
// recorded strictly after the target timestamp, optionally scoped.
func (s *restoreService) changeSet(req RestoreRequestInput) *gorm.DB {
	q := s.db.Model(&models.AuditEntry{}).
		Where("organization_id = ?", req.OrganizationID).
		Where("created_at > ?", req.TargetTimestamp)
	switch req.RestoreType {
	case models.RestoreTable:
		q = q.Where("table_name = ?", req.TargetTable)
	case models.RestoreSingleRecord:
		q = q.Where("table_name = ? AND record_id = ?", req.TargetTable, req.TargetRecordID)
	}
	return q
}

// revert undoes one audit entry inside tx and records the reversal as a new
// entry attributed to the restoring user.
func (s *restoreService) revert(tx *gorm.DB, entry models.AuditEntry, row *models.RestoreRequest, actor Actor) (*models.AuditEntry, error) {
	change := Change{
		OrganizationID:   entry.OrganizationID,
		TableName:        entry.TableName,
		RecordID:         entry.RecordID,
		Actor:            actor,
		RestoreRequestID: &row.ID,
	}

	switch entry.Action {
	case models.ActionInsert:
		// Undo an insert by deleting the row.
		current, err := currentRow(tx, entry.TableName, entry.RecordID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("record %s no longer exists", entry.RecordID)
		}
		if err := tx.Exec("DELETE FROM "+entry.TableName+" WHERE id = ?", entry.RecordID).Error; err != nil {
			return nil, err
		}
		change.Action = models.ActionDelete
		change.Before = current

	case models.ActionUpdate:
		current, err := currentRow(tx, entry.TableName, entry.RecordID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("record %s no longer exists", entry.RecordID)
		}
		before, err := unmarshalSnapshot(entry.BeforeValue)
		if err != nil {
			return nil, err
		}
		writeback := make(map[string]interface{}, len(entry.ChangedFields))
		for _, field := range entry.ChangedFields {
			writeback[field] = before[field]
		}
		if len(writeback) > 0 {
			if err := tx.Table(entry.TableName).Where("id = ?", entry.RecordID).Updates(writeback).Error; err != nil {
				return nil, err
			}
		}
		after := make(map[string]interface{}, len(current))
		for k, v := range current {
			after[k] = v
		}
		for k, v := range writeback {
			after[k] = v
		}
		change.Action = models.ActionUpdate
		change.Before = current
		change.After = after

	case models.ActionDelete:
		// Undo a delete by re-inserting the captured row.
		current, err := currentRow(tx, entry.TableName, entry.RecordID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, fmt.Errorf("record %s already exists", entry.RecordID)
		}
		before, err := unmarshalSnapshot(entry.BeforeValue)
		if err != nil {
			return nil, err
		}
		if err := tx.Table(entry.TableName).Create(&before).Error; err != nil {
			return nil, err
		}
		change.Action = models.ActionInsert
		change.After = before

	default:
		return nil, fmt.Errorf("unknown audit action %q", entry.Action)
	}

	return s.recorder.Record(tx, change)
}

// currentRow loads the live row as a column map, or nil when absent.
func currentRow(tx *gorm.DB, table, recordID string) (map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := tx.Table(table).Where("id = ?", recordID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func unmarshalSnapshot(value *string) (map[string]interface{}, error) {
	if value == nil {
		return nil, fmt.Errorf("audit entry is missing its snapshot")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(*value), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// acquire claims the organization's restore slot. At most one restore may be
// applying per organization at any time.
func (s *restoreService) acquire(organizationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applying[organizationID] {
		return false
	}
	var n int64
	if err := s.db.Model(&models.RestoreRequest{}).
		Where("organization_id = ? AND status = ?", organizationID, models.RestoreStatusApplying).
		Count(&n).Error; err != nil || n > 0 {
		return false
	}
	s.applying[organizationID] = true
	return true
}

func (s *restoreService) release(organizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.applying, organizationID)
}

func (s *restoreService) actorFor(userID string) (Actor, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return Actor{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return Actor{ID: user.ID, Email: user.Email}, nil
}

// fail marks the persisted request FAILED with the error and passes it through.
func (s *restoreService) fail(row *models.RestoreRequest, cause error) error {
	finished := time.Now()
	updates := map[string]interface{}{
		"status":      models.RestoreStatusFailed,
		"errors":      models.FieldList{cause.Error()},
		"finished_at": &finished,
	}
	if err := s.db.Model(row).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to mark restore request as failed",
			"request_id", row.ID, "error", err)
	}
	return cause
}

// finish records the terminal state of the request row.
func (s *restoreService) finish(row *models.RestoreRequest, status models.RestoreStatus, result *RestoreResult, finished time.Time) {
	updates := map[string]interface{}{
		"status":         status,
		"restored_count": result.RestoredCount,
		"finished_at":    &finished,
	}
	if len(result.Errors) > 0 {
		updates["errors"] = models.FieldList(result.Errors)
	}
	if err := s.db.Model(row).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to finalize restore request",
			"request_id", row.ID, "status", status, "error", err)
	}
}
