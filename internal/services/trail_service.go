package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/pagination"
	"complytrail/internal/permissions"
)

const defaultTrailPageSize = 50

// auditTrailService answers time-ranged, paginated queries over the audit
// log for one organization.
type auditTrailService struct {
	db          *gorm.DB
	gate        permissions.Gate
	maxPageSize int
	retention   time.Duration
}

// NewAuditTrailService creates a new AuditTrailServicer.
func NewAuditTrailService(db *gorm.DB, gate permissions.Gate, maxPageSize, retentionDays int) AuditTrailServicer {
	if maxPageSize <= 0 {
		maxPageSize = 200
	}
	return &auditTrailService{
		db:          db,
		gate:        gate,
		maxPageSize: maxPageSize,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// GetAuditTrail returns one page of audit entries for the organization,
// newest first, scoped to [StartDate, EndDate]. Pagination is keyset-based
// on (created_at, id) so pages stay stable under concurrent inserts.
func (s *auditTrailService) GetAuditTrail(userID, organizationID string, query TrailQuery) (*TrailPage, error) {
	allowed, err := s.gate.CanViewAuditTrail(userID, organizationID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrPermissionDenied
	}

	if query.StartDate.After(query.EndDate) {
		return nil, apperrors.ErrInvalidRange
	}

	// Clamp the window to the retention floor; a range entirely outside
	// retention cannot be served.
	floor := time.Now().Add(-s.retention)
	if query.EndDate.Before(floor) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidRange, "Requested window is older than the audit retention period")
	}
	if query.StartDate.Before(floor) {
		query.StartDate = floor
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultTrailPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	var cursor *pagination.Cursor
	if query.Cursor != "" {
		cursor, err = pagination.Decode(query.Cursor)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidCursor, err)
		}
	}

	var entries []models.AuditEntry
	err = s.db.Model(&models.AuditEntry{}).
		Where("organization_id = ?", organizationID).
		Where("created_at >= ? AND created_at <= ?", query.StartDate, query.EndDate).
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	page := &TrailPage{Entries: entries}
	if len(entries) == limit {
		last := entries[len(entries)-1]
		page.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}
