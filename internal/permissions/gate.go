// Package permissions answers capability checks for audit and restore
// operations. Checks hit the database on every call: permissions can change
// mid-session, so results must never be cached from an earlier request.
package permissions

import (
	"errors"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"

	"gorm.io/gorm"
)

// Gate exposes the capability checks required by the audit trail reader, the
// restore orchestrator, and the tracked-entity write path.
type Gate interface {
	CanViewAuditTrail(userID, organizationID string) (bool, error)
	CanRestoreData(userID, organizationID string) (bool, error)
	CanModifyEntities(userID, organizationID string) (bool, error)
}

// dbGate resolves capabilities from organization membership roles.
type dbGate struct {
	db *gorm.DB
}

// NewGate creates a Gate backed by the org_members table.
func NewGate(db *gorm.DB) Gate {
	return &dbGate{db: db}
}

func (g *dbGate) memberRole(userID, organizationID string) (models.OrgRole, error) {
	var member models.OrgMember
	err := g.db.Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member.Role, nil
}

// CanViewAuditTrail reports whether the user may read the organization's
// audit trail, activity sessions, and restore points.
func (g *dbGate) CanViewAuditTrail(userID, organizationID string) (bool, error) {
	role, err := g.memberRole(userID, organizationID)
	if err != nil {
		return false, err
	}
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleAuditor:
		return true, nil
	}
	return false, nil
}

// CanRestoreData reports whether the user may preview and apply restores.
// Restore is destructive and organization-wide, so it is held to the
// stricter admin tier.
func (g *dbGate) CanRestoreData(userID, organizationID string) (bool, error) {
	role, err := g.memberRole(userID, organizationID)
	if err != nil {
		return false, err
	}
	switch role {
	case models.RoleOwner, models.RoleAdmin:
		return true, nil
	}
	return false, nil
}

// CanModifyEntities reports whether the user may create, update, or delete
// the organization's tracked compliance records. Auditors are read-only.
func (g *dbGate) CanModifyEntities(userID, organizationID string) (bool, error) {
	role, err := g.memberRole(userID, organizationID)
	if err != nil {
		return false, err
	}
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleMember:
		return true, nil
	}
	return false, nil
}
