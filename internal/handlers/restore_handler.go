package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/models"
	"complytrail/internal/services"
)

// RestoreHandler serves the preview-then-confirm restore workflow.
type RestoreHandler struct {
	restoreService services.RestoreServicer
}

// NewRestoreHandler creates a new RestoreHandler.
func NewRestoreHandler(restoreService services.RestoreServicer) *RestoreHandler {
	return &RestoreHandler{restoreService: restoreService}
}

// RestoreRequestBody represents the request payload for preview and perform.
// ExpectedChanges is ignored on preview (it marks drift if set) and required
// on perform: it must equal the TotalChanges of the preview the operator saw.
type RestoreRequestBody struct {
	RestoreType     string    `json:"restore_type" binding:"required,restore_type"`
	TargetTimestamp time.Time `json:"target_timestamp" binding:"required"`
	TargetTable     string    `json:"target_table"`
	TargetRecordID  string    `json:"target_record_id"`
	Reason          string    `json:"reason" binding:"required,min=3"`
	ExpectedChanges int       `json:"expected_changes"`
}

func (b RestoreRequestBody) toInput(orgID string) services.RestoreRequestInput {
	return services.RestoreRequestInput{
		OrganizationID:  orgID,
		RestoreType:     models.RestoreType(b.RestoreType),
		TargetTimestamp: b.TargetTimestamp,
		TargetTable:     b.TargetTable,
		TargetRecordID:  b.TargetRecordID,
		Reason:          b.Reason,
		ExpectedChanges: b.ExpectedChanges,
	}
}

// PreviewRestore handles the read-only restore preview.
// @Summary     Preview a restore
// @Description Compute what restoring the organization to the target timestamp would undo, without applying it
// @Tags        restore
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Organization ID"
// @Param       request body RestoreRequestBody true "Restore request"
// @Success     200 {object} services.RestorePreview "Preview"
// @Failure     400 {object} ErrorResponse "Invalid request or range"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Target has no audit history"
// @Router      /orgs/{id}/restore/preview [post]
func (h *RestoreHandler) PreviewRestore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RestoreRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	preview, err := h.restoreService.PreviewRestore(userID, req.toInput(orgID))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// PerformRestore handles the confirmed restore.
// @Summary     Perform a restore
// @Description Apply a previously previewed restore; fails with STALE_PREVIEW if data changed since the preview
// @Tags        restore
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Organization ID"
// @Param       request body RestoreRequestBody true "Confirmed restore request (expected_changes from the preview)"
// @Success     200 {object} services.RestoreResult "Restore applied"
// @Failure     400 {object} ErrorResponse "Invalid request or range"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Restore in progress or stale preview"
// @Failure     500 {object} ErrorResponse "Reversal failed; transaction rolled back"
// @Router      /orgs/{id}/restore [post]
func (h *RestoreHandler) PerformRestore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orgID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RestoreRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.restoreService.PerformRestore(userID, req.toInput(orgID))
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !result.Success {
		// The transaction rolled back: report the specific failure alongside
		// the persisted request so the operator can decide what to do next.
		c.JSON(apperrors.ErrPartialApplyFailure.StatusCode, gin.H{
			"error": gin.H{
				"code":    apperrors.ErrPartialApplyFailure.Code,
				"message": apperrors.ErrPartialApplyFailure.Message,
			},
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
