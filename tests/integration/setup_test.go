package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"complytrail/internal/handlers"
	"complytrail/internal/logger"
	"complytrail/internal/middleware"
	"complytrail/internal/models"
	"complytrail/internal/permissions"
	"complytrail/internal/services"
	"complytrail/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrgMember{},
		&models.Assessment{},
		&models.Requirement{},
		&models.ComplianceDocument{},
		&models.AuditEntry{},
		&models.RestoreRequest{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	gate := permissions.NewGate(db)
	recorder := services.NewChangeRecorder()
	userService := services.NewUserService(db)
	complianceService := services.NewComplianceService(db, gate, recorder)
	trailService := services.NewAuditTrailService(db, gate, 200, 90)
	activityService := services.NewUserActivityService(db, gate, 30*time.Minute)
	pointService := services.NewRestorePointService(db, gate, 90)
	restoreService := services.NewRestoreService(db, gate, recorder, 90)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	complianceHandler := handlers.NewComplianceHandler(complianceService)
	auditHandler := handlers.NewAuditHandler(trailService, activityService, pointService)
	restoreHandler := handlers.NewRestoreHandler(restoreService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	orgs := protected.Group("/orgs")
	orgs.POST("", authHandler.CreateOrganization)
	orgs.POST("/:id/members", authHandler.AddMember)

	orgs.GET("/:id/audit-trail", auditHandler.GetAuditTrail)
	orgs.GET("/:id/activity", auditHandler.GetUserActivity)
	orgs.GET("/:id/restore-points", auditHandler.GetRestorePoints)

	orgs.POST("/:id/restore/preview", restoreHandler.PreviewRestore)
	orgs.POST("/:id/restore", restoreHandler.PerformRestore)

	orgs.POST("/:id/requirements", complianceHandler.CreateRequirement)
	orgs.GET("/:id/requirements/:req_id", complianceHandler.GetRequirement)
	orgs.PUT("/:id/requirements/:req_id", complianceHandler.UpdateRequirement)
	orgs.DELETE("/:id/requirements/:req_id", complianceHandler.DeleteRequirement)
	orgs.POST("/:id/assessments", complianceHandler.CreateAssessment)
	orgs.PUT("/:id/assessments/:assessment_id", complianceHandler.UpdateAssessment)
	orgs.DELETE("/:id/assessments/:assessment_id", complianceHandler.DeleteAssessment)
	orgs.POST("/:id/documents", complianceHandler.CreateDocument)
	orgs.PUT("/:id/documents/:document_id", complianceHandler.UpdateDocument)
	orgs.DELETE("/:id/documents/:document_id", complianceHandler.DeleteDocument)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

// createOrg creates an organization owned by the token's user and returns its ID.
func (app *testApp) createOrg(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/orgs", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create org failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	org := result["organization"].(map[string]interface{})
	return org["id"].(string)
}

// createRequirement creates a requirement and returns its ID.
func (app *testApp) createRequirement(t *testing.T, token, orgID, controlID, title string) string {
	t.Helper()
	body := fmt.Sprintf(`{"control_id":%q,"title":%q}`, controlID, title)
	rec := app.request("POST", "/api/v1/orgs/"+orgID+"/requirements", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create requirement failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	req := result["requirement"].(map[string]interface{})
	return req["id"].(string)
}
