package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"complytrail/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestOrg creates an organization owned by the given user.
func CreateTestOrg(t *testing.T, db *gorm.DB, ownerID string) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:     fmt.Sprintf("Test Org %d", nextID()),
		IsActive: true,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	CreateTestMember(t, db, org.ID, ownerID, models.RoleOwner)
	return org
}

// CreateTestMember adds a user to an organization with the given role.
func CreateTestMember(t *testing.T, db *gorm.DB, orgID, userID string, role models.OrgRole) *models.OrgMember {
	t.Helper()

	member := &models.OrgMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test org member: %v", err)
	}
	return member
}

// CreateTestAssessment creates an open assessment for the organization.
func CreateTestAssessment(t *testing.T, db *gorm.DB, orgID string) *models.Assessment {
	t.Helper()

	assessment := &models.Assessment{
		OrganizationID: orgID,
		Name:           fmt.Sprintf("Test Assessment %d", nextID()),
		Standard:       "ISO 27001",
		Status:         models.AssessmentStatusOpen,
	}
	if err := db.Create(assessment).Error; err != nil {
		t.Fatalf("failed to create test assessment: %v", err)
	}
	return assessment
}

// CreateTestRequirement creates a draft requirement for the organization.
func CreateTestRequirement(t *testing.T, db *gorm.DB, orgID string) *models.Requirement {
	t.Helper()

	requirement := &models.Requirement{
		OrganizationID: orgID,
		ControlID:      fmt.Sprintf("A.%d.1", nextID()),
		Title:          fmt.Sprintf("Test Requirement %d", nextID()),
		Status:         models.RequirementStatusDraft,
	}
	if err := db.Create(requirement).Error; err != nil {
		t.Fatalf("failed to create test requirement: %v", err)
	}
	return requirement
}

// CreateTestDocument creates a compliance document for the organization.
func CreateTestDocument(t *testing.T, db *gorm.DB, orgID string) *models.ComplianceDocument {
	t.Helper()

	doc := &models.ComplianceDocument{
		OrganizationID: orgID,
		Title:          fmt.Sprintf("Test Document %d", nextID()),
		DocumentType:   "policy",
		Version:        1,
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed to create test document: %v", err)
	}
	return doc
}

// CreateTestAuditEntry inserts an audit entry with an explicit timestamp,
// bypassing the change recorder. Useful for building timelines in tests.
func CreateTestAuditEntry(t *testing.T, db *gorm.DB, entry *models.AuditEntry) *models.AuditEntry {
	t.Helper()

	if entry.Action == "" {
		entry.Action = models.ActionUpdate
	}
	if entry.UserEmail == "" {
		entry.UserEmail = "auditor@test.com"
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test audit entry: %v", err)
	}
	return entry
}
