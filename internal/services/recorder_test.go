package services

import (
	"testing"

	"complytrail/internal/models"
	"complytrail/internal/testutil"
)

func TestRecord(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)
		req := testutil.CreateTestRequirement(t, db, org.ID)

		after, err := Snapshot(req)
		testutil.AssertNoError(t, err)

		entry, err := recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "requirements",
			RecordID:       req.ID,
			Action:         models.ActionInsert,
			After:          after,
			Actor:          Actor{ID: user.ID, Email: user.Email},
		})
		testutil.AssertNoError(t, err)

		if entry.ID == "" {
			t.Fatal("expected generated entry ID")
		}
		if entry.BeforeValue != nil {
			t.Error("insert entries must not carry a before snapshot")
		}
		if entry.AfterValue == nil {
			t.Error("insert entries must carry an after snapshot")
		}
		if entry.UserEmail != user.Email {
			t.Errorf("expected actor email %s, got %s", user.Email, entry.UserEmail)
		}
	})

	t.Run("update_computes_sorted_changed_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)
		req := testutil.CreateTestRequirement(t, db, org.ID)

		before, err := Snapshot(req)
		testutil.AssertNoError(t, err)
		req.Status = models.RequirementStatusFulfilled
		req.Notes = "audited in Q1"
		after, err := Snapshot(req)
		testutil.AssertNoError(t, err)

		entry, err := recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "requirements",
			RecordID:       req.ID,
			Action:         models.ActionUpdate,
			Before:         before,
			After:          after,
			Actor:          Actor{ID: user.ID, Email: user.Email},
		})
		testutil.AssertNoError(t, err)

		if len(entry.ChangedFields) != 2 {
			t.Fatalf("expected 2 changed fields, got %v", entry.ChangedFields)
		}
		if entry.ChangedFields[0] != "notes" || entry.ChangedFields[1] != "status" {
			t.Errorf("expected sorted [notes status], got %v", entry.ChangedFields)
		}
	})

	t.Run("delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)
		req := testutil.CreateTestRequirement(t, db, org.ID)

		before, err := Snapshot(req)
		testutil.AssertNoError(t, err)

		entry, err := recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "requirements",
			RecordID:       req.ID,
			Action:         models.ActionDelete,
			Before:         before,
			Actor:          Actor{ID: user.ID, Email: user.Email},
		})
		testutil.AssertNoError(t, err)

		if entry.BeforeValue == nil {
			t.Error("delete entries must carry a before snapshot")
		}
		if entry.AfterValue != nil {
			t.Error("delete entries must not carry an after snapshot")
		}
	})

	t.Run("untracked_table_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)

		_, err := recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "users",
			RecordID:       user.ID,
			Action:         models.ActionInsert,
			After:          map[string]interface{}{"id": user.ID},
			Actor:          Actor{ID: user.ID},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("missing_actor_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)
		req := testutil.CreateTestRequirement(t, db, org.ID)

		after, err := Snapshot(req)
		testutil.AssertNoError(t, err)

		_, err = recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "requirements",
			RecordID:       req.ID,
			Action:         models.ActionInsert,
			After:          after,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("missing_snapshot_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		recorder := NewChangeRecorder()
		user := testutil.CreateTestUser(t, db)
		org := testutil.CreateTestOrg(t, db, user.ID)
		req := testutil.CreateTestRequirement(t, db, org.ID)

		// An update without its before snapshot is not recordable.
		_, err := recorder.Record(db, Change{
			OrganizationID: org.ID,
			TableName:      "requirements",
			RecordID:       req.ID,
			Action:         models.ActionUpdate,
			After:          map[string]interface{}{"status": "fulfilled"},
			Actor:          Actor{ID: user.ID},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestChangedFields(t *testing.T) {
	t.Run("nested_values_compared_by_content", func(t *testing.T) {
		before := map[string]interface{}{
			"title": "Access control",
			"tags":  []interface{}{"iso", "a9"},
		}
		after := map[string]interface{}{
			"title": "Access control",
			"tags":  []interface{}{"iso", "a9", "reviewed"},
		}
		fields := changedFields(before, after)
		if len(fields) != 1 || fields[0] != "tags" {
			t.Errorf("expected [tags], got %v", fields)
		}
	})

	t.Run("added_field_counts_as_changed", func(t *testing.T) {
		fields := changedFields(
			map[string]interface{}{"title": "x"},
			map[string]interface{}{"title": "x", "notes": "new"},
		)
		if len(fields) != 1 || fields[0] != "notes" {
			t.Errorf("expected [notes], got %v", fields)
		}
	})

	t.Run("no_difference", func(t *testing.T) {
		fields := changedFields(
			map[string]interface{}{"title": "x"},
			map[string]interface{}{"title": "x"},
		)
		if len(fields) != 0 {
			t.Errorf("expected no changed fields, got %v", fields)
		}
	})
}

func TestTrackedTables(t *testing.T) {
	if !IsTrackedTable("requirements") {
		t.Error("requirements should be tracked")
	}
	if IsTrackedTable("users") {
		t.Error("users must not be tracked")
	}

	names := TrackedTables()
	if len(names) != 3 {
		t.Fatalf("expected 3 tracked tables, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("expected sorted table names, got %v", names)
		}
	}
}
