package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/services"
)

// ComplianceHandler serves the tracked-entity write path. It carries no
// business logic: each mutation goes through the compliance service so the
// change recorder sees it.
type ComplianceHandler struct {
	complianceService services.ComplianceServicer
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(complianceService services.ComplianceServicer) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// CreateRequirementRequest represents the payload for creating a requirement.
type CreateRequirementRequest struct {
	AssessmentID *string `json:"assessment_id" binding:"omitempty,uuid"`
	ControlID    string  `json:"control_id" binding:"required,max=100"`
	Title        string  `json:"title" binding:"required,max=500"`
	Description  string  `json:"description"`
	Status       string  `json:"status" binding:"omitempty,requirement_status"`
	Notes        string  `json:"notes"`
}

// UpdateRequirementRequest represents the payload for updating a requirement.
type UpdateRequirementRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=500"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,requirement_status"`
	Notes       *string `json:"notes"`
}

// CreateAssessmentRequest represents the payload for creating an assessment.
type CreateAssessmentRequest struct {
	Name     string     `json:"name" binding:"required,max=200"`
	Standard string     `json:"standard" binding:"required,max=200"`
	Status   string     `json:"status" binding:"omitempty,assessment_status"`
	DueDate  *time.Time `json:"due_date"`
}

// UpdateAssessmentRequest represents the payload for updating an assessment.
type UpdateAssessmentRequest struct {
	Name    *string    `json:"name" binding:"omitempty,max=200"`
	Status  *string    `json:"status" binding:"omitempty,assessment_status"`
	DueDate *time.Time `json:"due_date"`
}

// CreateDocumentRequest represents the payload for creating a document.
type CreateDocumentRequest struct {
	AssessmentID *string `json:"assessment_id" binding:"omitempty,uuid"`
	Title        string  `json:"title" binding:"required,max=500"`
	DocumentType string  `json:"document_type" binding:"max=100"`
	StorageKey   string  `json:"storage_key" binding:"max=500"`
}

// UpdateDocumentRequest represents the payload for updating a document.
type UpdateDocumentRequest struct {
	Title        *string `json:"title" binding:"omitempty,max=500"`
	DocumentType *string `json:"document_type" binding:"omitempty,max=100"`
	StorageKey   *string `json:"storage_key" binding:"omitempty,max=500"`
	Version      *int    `json:"version" binding:"omitempty,min=1"`
}

// CreateRequirement handles creating a requirement.
// @Summary     Create a requirement
// @Description Create a compliance requirement; the mutation is audited atomically
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Organization ID"
// @Param       request body CreateRequirementRequest true "Requirement details"
// @Success     201 {object} models.Requirement "Requirement created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /orgs/{id}/requirements [post]
func (h *ComplianceHandler) CreateRequirement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	requirement := &models.Requirement{
		AssessmentID: req.AssessmentID,
		ControlID:    req.ControlID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.RequirementStatus(req.Status),
		Notes:        req.Notes,
	}

	created, err := h.complianceService.CreateRequirement(actor, orgID, requirement)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"requirement": created})
}

// GetRequirement handles retrieving a requirement.
// @Summary     Get requirement by ID
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Organization ID"
// @Param       req_id path string true "Requirement ID"
// @Success     200 {object} models.Requirement "Requirement"
// @Failure     404 {object} ErrorResponse "Requirement not found"
// @Router      /orgs/{id}/requirements/{req_id} [get]
func (h *ComplianceHandler) GetRequirement(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	reqID, err := parsePathUUID(c, "req_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	requirement, err := h.complianceService.GetRequirement(orgID, reqID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requirement": requirement})
}

// UpdateRequirement handles updating a requirement.
// @Summary     Update requirement
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Organization ID"
// @Param       req_id  path string                   true "Requirement ID"
// @Param       request body UpdateRequirementRequest true "Updated fields"
// @Success     200 {object} models.Requirement "Updated requirement"
// @Failure     404 {object} ErrorResponse "Requirement not found"
// @Router      /orgs/{id}/requirements/{req_id} [put]
func (h *ComplianceHandler) UpdateRequirement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	reqID, err := parsePathUUID(c, "req_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	requirement, err := h.complianceService.UpdateRequirement(actor, orgID, reqID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requirement": requirement})
}

// DeleteRequirement handles deleting a requirement.
// @Summary     Delete requirement
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Organization ID"
// @Param       req_id path string true "Requirement ID"
// @Success     200 {object} MessageResponse "Requirement deleted"
// @Failure     404 {object} ErrorResponse "Requirement not found"
// @Router      /orgs/{id}/requirements/{req_id} [delete]
func (h *ComplianceHandler) DeleteRequirement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	reqID, err := parsePathUUID(c, "req_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.complianceService.DeleteRequirement(actor, orgID, reqID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Requirement deleted successfully"})
}

// CreateAssessment handles creating an assessment.
// @Summary     Create an assessment
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Organization ID"
// @Param       request body CreateAssessmentRequest true "Assessment details"
// @Success     201 {object} models.Assessment "Assessment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /orgs/{id}/assessments [post]
func (h *ComplianceHandler) CreateAssessment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	assessment := &models.Assessment{
		Name:     req.Name,
		Standard: req.Standard,
		Status:   models.AssessmentStatus(req.Status),
		DueDate:  req.DueDate,
	}

	created, err := h.complianceService.CreateAssessment(actor, orgID, assessment)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assessment": created})
}

// UpdateAssessment handles updating an assessment.
// @Summary     Update assessment
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id            path string                  true "Organization ID"
// @Param       assessment_id path string                  true "Assessment ID"
// @Param       request       body UpdateAssessmentRequest true "Updated fields"
// @Success     200 {object} models.Assessment "Updated assessment"
// @Failure     404 {object} ErrorResponse "Assessment not found"
// @Router      /orgs/{id}/assessments/{assessment_id} [put]
func (h *ComplianceHandler) UpdateAssessment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	assessmentID, err := parsePathUUID(c, "assessment_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	assessment, err := h.complianceService.UpdateAssessment(actor, orgID, assessmentID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// DeleteAssessment handles deleting an assessment.
// @Summary     Delete assessment
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       id            path string true "Organization ID"
// @Param       assessment_id path string true "Assessment ID"
// @Success     200 {object} MessageResponse "Assessment deleted"
// @Failure     404 {object} ErrorResponse "Assessment not found"
// @Router      /orgs/{id}/assessments/{assessment_id} [delete]
func (h *ComplianceHandler) DeleteAssessment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	assessmentID, err := parsePathUUID(c, "assessment_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.complianceService.DeleteAssessment(actor, orgID, assessmentID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assessment deleted successfully"})
}

// CreateDocument handles creating a compliance document.
// @Summary     Create a document
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Organization ID"
// @Param       request body CreateDocumentRequest true "Document details"
// @Success     201 {object} models.ComplianceDocument "Document created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /orgs/{id}/documents [post]
func (h *ComplianceHandler) CreateDocument(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	document := &models.ComplianceDocument{
		AssessmentID: req.AssessmentID,
		Title:        req.Title,
		DocumentType: req.DocumentType,
		StorageKey:   req.StorageKey,
	}

	created, err := h.complianceService.CreateDocument(actor, orgID, document)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"document": created})
}

// UpdateDocument handles updating a compliance document.
// @Summary     Update document
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id          path string                true "Organization ID"
// @Param       document_id path string                true "Document ID"
// @Param       request     body UpdateDocumentRequest true "Updated fields"
// @Success     200 {object} models.ComplianceDocument "Updated document"
// @Failure     404 {object} ErrorResponse "Document not found"
// @Router      /orgs/{id}/documents/{document_id} [put]
func (h *ComplianceHandler) UpdateDocument(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	documentID, err := parsePathUUID(c, "document_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.DocumentType != nil {
		updates["document_type"] = *req.DocumentType
	}
	if req.StorageKey != nil {
		updates["storage_key"] = *req.StorageKey
	}
	if req.Version != nil {
		updates["version"] = *req.Version
	}

	document, err := h.complianceService.UpdateDocument(actor, orgID, documentID, updates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": document})
}

// DeleteDocument handles deleting a compliance document.
// @Summary     Delete document
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       id          path string true "Organization ID"
// @Param       document_id path string true "Document ID"
// @Success     200 {object} MessageResponse "Document deleted"
// @Failure     404 {object} ErrorResponse "Document not found"
// @Router      /orgs/{id}/documents/{document_id} [delete]
func (h *ComplianceHandler) DeleteDocument(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	documentID, err := parsePathUUID(c, "document_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.complianceService.DeleteDocument(actor, orgID, documentID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
