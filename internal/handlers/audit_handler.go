package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "complytrail/internal/errors"
	"complytrail/internal/services"
)

// AuditHandler serves the activity timeline read paths: the audit trail,
// per-user sessions, and restore points.
type AuditHandler struct {
	trailService    services.AuditTrailServicer
	activityService services.UserActivityServicer
	pointService    services.RestorePointServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(
	trailService services.AuditTrailServicer,
	activityService services.UserActivityServicer,
	pointService services.RestorePointServicer,
) *AuditHandler {
	return &AuditHandler{
		trailService:    trailService,
		activityService: activityService,
		pointService:    pointService,
	}
}

// GetAuditTrail handles paginated audit trail queries.
// @Summary     Get audit trail
// @Description Get a time-ranged, cursor-paginated page of audit entries for an organization, newest first
// @Tags        audit
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path  string true  "Organization ID"
// @Param       start  query string false "Range start (RFC3339, default 7 days ago)"
// @Param       end    query string false "Range end (RFC3339, default now)"
// @Param       limit  query int    false "Page size (default 50, max 200)"
// @Param       cursor query string false "Opaque cursor from a previous page"
// @Success     200 {object} services.TrailPage "Page of audit entries"
// @Failure     400 {object} ErrorResponse "Invalid range or cursor"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /orgs/{id}/audit-trail [get]
func (h *AuditHandler) GetAuditTrail(c *gin.Context) {
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

	start, end, err := parseTimeRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be a non-negative integer"))
			return
		}
	}

	page, err := h.trailService.GetAuditTrail(userID, orgID, services.TrailQuery{
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
		Cursor:    c.Query("cursor"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetUserActivity handles per-user session summaries.
// @Summary     Get user activity sessions
// @Description Group an organization's audit entries into per-user sessions bounded by inactivity gaps
// @Tags        audit
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Organization ID"
// @Param       start query string false "Range start (RFC3339, default 7 days ago)"
// @Param       end   query string false "Range end (RFC3339, default now)"
// @Success     200 {object} map[string][]services.UserActivity "Sessions, newest first"
// @Failure     400 {object} ErrorResponse "Invalid range"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /orgs/{id}/activity [get]
func (h *AuditHandler) GetUserActivity(c *gin.Context) {
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

	start, end, err := parseTimeRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sessions, err := h.activityService.GetUserActivity(userID, orgID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetRestorePoints handles restore point discovery.
// @Summary     Get restore points
// @Description List candidate timestamps the organization can be restored to, newest first
// @Tags        restore
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id          path  string true  "Organization ID"
// @Param       window_days query int    false "How many days back to offer (default 7)"
// @Success     200 {object} map[string][]services.RestorePoint "Restore points"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /orgs/{id}/restore-points [get]
func (h *AuditHandler) GetRestorePoints(c *gin.Context) {
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

	windowDays := 7
	if v := c.Query("window_days"); v != "" {
		windowDays, err = strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "window_days must be an integer"))
			return
		}
	}

	points, err := h.pointService.GetRestorePoints(userID, orgID, windowDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"restore_points": points})
}
