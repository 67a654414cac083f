package models

// Organization is the tenant boundary for all audit and restore operations.
type Organization struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// OrgRole determines what a member may do inside an organization.
type OrgRole string

const (
	RoleOwner   OrgRole = "owner"
	RoleAdmin   OrgRole = "admin"
	RoleAuditor OrgRole = "auditor"
	RoleMember  OrgRole = "member"
)

// OrgMember links a user to an organization with a role.
type OrgMember struct {
	Base
	OrganizationID string  `gorm:"type:uuid;not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID         string  `gorm:"type:uuid;not null;uniqueIndex:idx_org_user" json:"user_id"`
	Role           OrgRole `gorm:"not null" json:"role"`
}

// TableName overrides the table name used by GORM.
func (OrgMember) TableName() string { return "org_members" }
