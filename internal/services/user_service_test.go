package services

import (
	"testing"

	"complytrail/internal/models"
	"complytrail/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Alice@Example.com", "password123", "Alice", "Smith")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected generated user ID")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if !svc.VerifyPassword(user, "password123") {
			t.Error("expected stored password to verify")
		}
		if svc.VerifyPassword(user, "wrong") {
			t.Error("expected wrong password to fail")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("dup@example.com", "password123", "", "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateUser("dup@example.com", "password456", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_credentials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "password123", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	created, err := svc.CreateUser("bob@example.com", "password123", "Bob", "")
	testutil.AssertNoError(t, err)

	byEmail, err := svc.GetUserByEmail("bob@example.com")
	testutil.AssertNoError(t, err)
	if byEmail.ID != created.ID {
		t.Errorf("expected user %s, got %s", created.ID, byEmail.ID)
	}

	byID, err := svc.GetUserByID(created.ID)
	testutil.AssertNoError(t, err)
	if byID.Email != "bob@example.com" {
		t.Errorf("expected bob@example.com, got %s", byID.Email)
	}

	_, err = svc.GetUserByEmail("nobody@example.com")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("store_and_get", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "aabbcc"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "aabbcc" {
			t.Errorf("expected stored hash, got %q", hash)
		}

		// A later store replaces the previous hash.
		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "ddeeff"))
		hash, err = svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "ddeeff" {
			t.Errorf("expected rotated hash, got %q", hash)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		err := svc.StoreRefreshTokenHash("00000000-0000-0000-0000-000000000000", "aabbcc")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestCreateOrganization(t *testing.T) {
	t.Run("owner_membership_created_atomically", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		org, err := svc.CreateOrganization(user.ID, "Acme Compliance")
		testutil.AssertNoError(t, err)
		if org.ID == "" {
			t.Fatal("expected generated organization ID")
		}

		var member models.OrgMember
		testutil.AssertNoError(t, db.First(&member, "organization_id = ? AND user_id = ?", org.ID, user.ID).Error)
		if member.Role != models.RoleOwner {
			t.Errorf("expected creator to be owner, got %s", member.Role)
		}
	})

	t.Run("empty_name_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateOrganization(user.ID, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAddMember(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		owner := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, owner.ID)
		auditor := testutil.CreateTestUser(t, db)

		member, err := svc.AddMember(org.ID, auditor.ID, models.RoleAuditor)
		testutil.AssertNoError(t, err)
		if member.Role != models.RoleAuditor {
			t.Errorf("expected auditor role, got %s", member.Role)
		}
	})

	t.Run("unknown_organization", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AddMember("00000000-0000-0000-0000-000000000000", user.ID, models.RoleMember)
		testutil.AssertAppError(t, err, "ORGANIZATION_NOT_FOUND")
	})
}
