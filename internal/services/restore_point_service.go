package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/permissions"
)

// restorePointService derives restorable timestamps from the audit log.
type restorePointService struct {
	db            *gorm.DB
	gate          permissions.Gate
	retentionDays int
}

// NewRestorePointService creates a new RestorePointServicer.
func NewRestorePointService(db *gorm.DB, gate permissions.Gate, retentionDays int) RestorePointServicer {
	return &restorePointService{db: db, gate: gate, retentionDays: retentionDays}
}

// GetRestorePoints returns candidate restore timestamps for the organization,
// newest first: "now", one per completed hour for the last 24 hours, then one
// per completed day out to windowDays. Points older than the window or the
// organization's oldest retained audit entry are dropped. Truncation to
// hour/day boundaries makes two calls within the same second return identical
// sets.
func (s *restorePointService) GetRestorePoints(userID, organizationID string, windowDays int) ([]RestorePoint, error) {
	allowed, err := s.gate.CanViewAuditTrail(userID, organizationID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrPermissionDenied
	}

	if windowDays <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "window_days must be positive")
	}
	if windowDays > s.retentionDays {
		windowDays = s.retentionDays
	}

	var oldest models.AuditEntry
	err = s.db.Where("organization_id = ?", organizationID).
		Order("created_at, id").
		First(&oldest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to restore yet; "now" is the only point.
			now := time.Now()
			return []RestorePoint{{OrganizationID: organizationID, Timestamp: now, Label: "now"}}, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	points := []RestorePoint{{OrganizationID: organizationID, Timestamp: now, Label: "now"}}

	appendPoint := func(ts time.Time) {
		if ts.Before(oldest.CreatedAt) || ts.After(now) {
			return
		}
		points = append(points, RestorePoint{
			OrganizationID: organizationID,
			Timestamp:      ts,
			Label:          labelFor(now, ts),
		})
	}

	// One point per completed hour over the last 24 hours.
	hourTop := now.Truncate(time.Hour)
	for h := 0; h < 24; h++ {
		appendPoint(hourTop.Add(-time.Duration(h) * time.Hour))
	}

	// One point per completed day beyond that, out to the window. Truncated
	// day points can land almost a full day before dayTop, so each is checked
	// against the window bound rather than trusting the loop count.
	windowStart := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	dayTop := now.Truncate(24 * time.Hour)
	for d := 1; d <= windowDays; d++ {
		ts := dayTop.Add(-time.Duration(d) * 24 * time.Hour)
		if ts.Before(windowStart) {
			break
		}
		appendPoint(ts)
	}

	return points, nil
}

// labelFor humanizes a restore point's age relative to now.
func labelFor(now, ts time.Time) string {
	age := now.Sub(ts)
	switch {
	case age < time.Hour:
		minutes := int(age.Minutes())
		if minutes <= 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
