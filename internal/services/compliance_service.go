package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/permissions"
)

// complianceService is the write path for tracked compliance entities. Every
// mutation runs in one transaction with its audit entry: if the entry cannot
// be appended, the mutation fails with it.
type complianceService struct {
	db       *gorm.DB
	gate     permissions.Gate
	recorder ChangeRecorder
}

// NewComplianceService creates a new ComplianceServicer.
func NewComplianceService(db *gorm.DB, gate permissions.Gate, recorder ChangeRecorder) ComplianceServicer {
	return &complianceService{db: db, gate: gate, recorder: recorder}
}

// authorize rejects writes from actors without a writing role in the
// organization before any record is touched or looked up.
func (s *complianceService) authorize(actor Actor, organizationID string) error {
	allowed, err := s.gate.CanModifyEntities(actor.ID, organizationID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrPermissionDenied
	}
	return nil
}

// guardedUpdates strips fields that must never change through the update path.
func guardedUpdates(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		switch k {
		case "id", "organization_id", "created_at":
			continue
		}
		out[k] = v
	}
	return out
}

func (s *complianceService) create(actor Actor, organizationID, table, recordID string, entity interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		after, err := Snapshot(entity)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		_, err = s.recorder.Record(tx, Change{
			OrganizationID: organizationID,
			TableName:      table,
			RecordID:       snapshotID(after, recordID),
			Action:         models.ActionInsert,
			After:          after,
			Actor:          actor,
		})
		return err
	})
}

func (s *complianceService) update(actor Actor, organizationID, table string, entity interface{}, updates map[string]interface{}) error {
	before, err := Snapshot(entity)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	updates = guardedUpdates(updates)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(entity).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		after, err := Snapshot(entity)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		_, err = s.recorder.Record(tx, Change{
			OrganizationID: organizationID,
			TableName:      table,
			RecordID:       snapshotID(before, ""),
			Action:         models.ActionUpdate,
			Before:         before,
			After:          after,
			Actor:          actor,
		})
		return err
	})
}

func (s *complianceService) remove(actor Actor, organizationID, table string, entity interface{}) error {
	before, err := Snapshot(entity)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Hard delete: the audit log is the durable history.
		if err := tx.Unscoped().Delete(entity).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		_, err = s.recorder.Record(tx, Change{
			OrganizationID: organizationID,
			TableName:      table,
			RecordID:       snapshotID(before, ""),
			Action:         models.ActionDelete,
			Before:         before,
			Actor:          actor,
		})
		return err
	})
}

func snapshotID(snapshot map[string]interface{}, fallback string) string {
	if id, ok := snapshot["id"].(string); ok && id != "" {
		return id
	}
	return fallback
}

// CreateRequirement creates a requirement and records the insert.
func (s *complianceService) CreateRequirement(actor Actor, organizationID string, req *models.Requirement) (*models.Requirement, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	if req.ControlID == "" || req.Title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "control ID and title are required")
	}
	req.OrganizationID = organizationID
	if req.Status == "" {
		req.Status = models.RequirementStatusDraft
	}
	if err := s.create(actor, organizationID, models.Requirement{}.TableName(), req.ID, req); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequirement applies field updates and records the before/after delta.
func (s *complianceService) UpdateRequirement(actor Actor, organizationID, requirementID string, updates map[string]interface{}) (*models.Requirement, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	req, err := s.GetRequirement(organizationID, requirementID)
	if err != nil {
		return nil, err
	}
	if err := s.update(actor, organizationID, models.Requirement{}.TableName(), req, updates); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequirement removes a requirement and records the delete.
func (s *complianceService) DeleteRequirement(actor Actor, organizationID, requirementID string) error {
	if err := s.authorize(actor, organizationID); err != nil {
		return err
	}
	req, err := s.GetRequirement(organizationID, requirementID)
	if err != nil {
		return err
	}
	return s.remove(actor, organizationID, models.Requirement{}.TableName(), req)
}

// GetRequirement retrieves a requirement scoped to the organization.
func (s *complianceService) GetRequirement(organizationID, requirementID string) (*models.Requirement, error) {
	var req models.Requirement
	err := s.db.Where("id = ? AND organization_id = ?", requirementID, organizationID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRequirementNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &req, nil
}

// CreateAssessment creates an assessment and records the insert.
func (s *complianceService) CreateAssessment(actor Actor, organizationID string, a *models.Assessment) (*models.Assessment, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	if a.Name == "" || a.Standard == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name and standard are required")
	}
	a.OrganizationID = organizationID
	if a.Status == "" {
		a.Status = models.AssessmentStatusOpen
	}
	if err := s.create(actor, organizationID, models.Assessment{}.TableName(), a.ID, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAssessment applies field updates and records the before/after delta.
func (s *complianceService) UpdateAssessment(actor Actor, organizationID, assessmentID string, updates map[string]interface{}) (*models.Assessment, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	a, err := s.getAssessment(organizationID, assessmentID)
	if err != nil {
		return nil, err
	}
	if err := s.update(actor, organizationID, models.Assessment{}.TableName(), a, updates); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAssessment removes an assessment and records the delete.
func (s *complianceService) DeleteAssessment(actor Actor, organizationID, assessmentID string) error {
	if err := s.authorize(actor, organizationID); err != nil {
		return err
	}
	a, err := s.getAssessment(organizationID, assessmentID)
	if err != nil {
		return err
	}
	return s.remove(actor, organizationID, models.Assessment{}.TableName(), a)
}

func (s *complianceService) getAssessment(organizationID, assessmentID string) (*models.Assessment, error) {
	var a models.Assessment
	err := s.db.Where("id = ? AND organization_id = ?", assessmentID, organizationID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssessmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &a, nil
}

// CreateDocument creates a compliance document and records the insert.
func (s *complianceService) CreateDocument(actor Actor, organizationID string, d *models.ComplianceDocument) (*models.ComplianceDocument, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	if d.Title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	d.OrganizationID = organizationID
	if d.Version == 0 {
		d.Version = 1
	}
	if err := s.create(actor, organizationID, models.ComplianceDocument{}.TableName(), d.ID, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDocument applies field updates and records the before/after delta.
func (s *complianceService) UpdateDocument(actor Actor, organizationID, documentID string, updates map[string]interface{}) (*models.ComplianceDocument, error) {
	if err := s.authorize(actor, organizationID); err != nil {
		return nil, err
	}
	d, err := s.getDocument(organizationID, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.update(actor, organizationID, models.ComplianceDocument{}.TableName(), d, updates); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDocument removes a compliance document and records the delete.
func (s *complianceService) DeleteDocument(actor Actor, organizationID, documentID string) error {
	if err := s.authorize(actor, organizationID); err != nil {
		return err
	}
	d, err := s.getDocument(organizationID, documentID)
	if err != nil {
		return err
	}
	return s.remove(actor, organizationID, models.ComplianceDocument{}.TableName(), d)
}

func (s *complianceService) getDocument(organizationID, documentID string) (*models.ComplianceDocument, error) {
	var d models.ComplianceDocument
	err := s.db.Where("id = ? AND organization_id = ?", documentID, organizationID).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &d, nil
}
