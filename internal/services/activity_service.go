package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/permissions"
)

// userActivityService groups audit entries into per-user sessions bounded by
// an inactivity gap.
type userActivityService struct {
	db   *gorm.DB
	gate permissions.Gate
	gap  time.Duration
}

// NewUserActivityService creates a new UserActivityServicer with the given
// inactivity gap.
func NewUserActivityService(db *gorm.DB, gate permissions.Gate, gap time.Duration) UserActivityServicer {
	if gap <= 0 {
		gap = 30 * time.Minute
	}
	return &userActivityService{db: db, gate: gate, gap: gap}
}

// GetUserActivity computes the session list for the organization within the
// given range, newest sessions first. Sessions are derived on every call and
// never stored.
func (s *userActivityService) GetUserActivity(userID, organizationID string, startDate, endDate time.Time) ([]UserActivity, error) {
	allowed, err := s.gate.CanViewAuditTrail(userID, organizationID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrPermissionDenied
	}

	if startDate.After(endDate) {
		return nil, apperrors.ErrInvalidRange
	}

	var entries []models.AuditEntry
	err = s.db.Model(&models.AuditEntry{}).
		Where("organization_id = ?", organizationID).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Order("user_id, created_at, id").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	sessions := make([]UserActivity, 0)

	var current *UserActivity
	var lastEntryAt time.Time
	tables := make(map[string]bool)

	flush := func(open bool) {
		if current == nil {
			return
		}
		end := lastEntryAt
		if open && now.Sub(lastEntryAt) < s.gap {
			current.EndTime = nil
		} else {
			current.EndTime = &end
		}
		current.AffectedTables = sortedKeys(tables)
		sessions = append(sessions, *current)
		current = nil
		tables = make(map[string]bool)
	}

	for i, entry := range entries {
		sameUser := current != nil && current.UserID == entry.UserID
		// Entries with identical timestamps always share a session.
		if !sameUser || entry.CreatedAt.Sub(lastEntryAt) > s.gap {
			flush(false)
			current = &UserActivity{
				SessionID: entry.ID,
				UserID:    entry.UserID,
				UserEmail: entry.UserEmail,
				StartTime: entry.CreatedAt,
			}
		}

		tables[entry.TableName] = true
		switch entry.Action {
		case models.ActionInsert:
			current.Summary.Inserts++
		case models.ActionUpdate:
			current.Summary.Updates++
		case models.ActionDelete:
			current.Summary.Deletes++
		}
		current.ChangeCount++
		lastEntryAt = entry.CreatedAt

		// The user's final session may still be open.
		isLastForUser := i == len(entries)-1 || entries[i+1].UserID != entry.UserID
		if isLastForUser {
			flush(true)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
