package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campushub/backend/internal/config"
	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/models"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/pkg/logger"
	"github.com/campushub/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	presence *services.MemoryPresence
	audit    *services.AuditService
}

var (
	testSetupOnce   sync.Once
	testUserCounter atomic.Int64
)

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Poll{},
		&models.Comment{},
		&models.Event{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	presence := services.NewMemoryPresence(90 * time.Second)
	auditService := services.NewAuditService(db)
	t.Cleanup(auditService.Close)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db, auditService)
	postsHandler := NewPostsHandler(db, auditService, presence)
	pollsHandler := NewPollsHandler(db, auditService, presence)
	commentsHandler := NewCommentsHandler(db, auditService, presence)
	eventsHandler := NewEventsHandler(db)
	mediaHandler := NewMediaHandler(nil, config.MediaConfig{})
	presenceHandler := NewPresenceHandler(presence)
	auditHandler := NewAuditHandler(db)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 25 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Delete("/:id", usersHandler.Delete)

	postRoutes := api.Group("/posts")
	postRoutes.Get("/", authMiddleware.OptionalAuth, postsHandler.List)
	postRoutes.Get("/:id", authMiddleware.OptionalAuth, postsHandler.Get)
	postRoutes.Post("/", authMiddleware.RequireAuth, postsHandler.Create)
	postRoutes.Put("/:id", authMiddleware.RequireAuth, postsHandler.Update)
	postRoutes.Delete("/:id", authMiddleware.RequireAuth, postsHandler.Delete)
	postRoutes.Post("/:id/like", authMiddleware.RequireAuth, postsHandler.ToggleLike)
	postRoutes.Post("/:postID/comments", authMiddleware.RequireAuth, commentsHandler.Create)
	postRoutes.Get("/:postID/comments", authMiddleware.RequireAuth, commentsHandler.ListForPost)

	commentRoutes := api.Group("/comments", authMiddleware.RequireAuth)
	commentRoutes.Get("/:id", commentsHandler.Get)
	commentRoutes.Delete("/:id", commentsHandler.Delete)
	commentRoutes.Post("/:id/like", commentsHandler.ToggleLike)

	pollRoutes := api.Group("/polls")
	pollRoutes.Get("/", authMiddleware.OptionalAuth, pollsHandler.List)
	pollRoutes.Get("/:id", authMiddleware.OptionalAuth, pollsHandler.Get)
	pollRoutes.Post("/", authMiddleware.RequireAuth, pollsHandler.Create)
	pollRoutes.Post("/:id/vote", authMiddleware.RequireAuth, pollsHandler.Vote)
	pollRoutes.Post("/:id/options", authMiddleware.RequireAuth, pollsHandler.AddOption)

	eventRoutes := api.Group("/events", authMiddleware.RequireAuth)
	eventRoutes.Get("/", eventsHandler.List)
	eventRoutes.Get("/:id", eventsHandler.Get)
	eventRoutes.Post("/", eventsHandler.Create)
	eventRoutes.Put("/:id", eventsHandler.Update)
	eventRoutes.Delete("/:id", eventsHandler.Delete)

	mediaRoutes := api.Group("/media", authMiddleware.RequireAuth)
	mediaRoutes.Post("/upload", mediaHandler.Upload)
	mediaRoutes.Delete("/", mediaHandler.Delete)

	presenceRoutes := api.Group("/presence", authMiddleware.RequireAuth)
	presenceRoutes.Post("/heartbeat", presenceHandler.Heartbeat)
	presenceRoutes.Get("/online", presenceHandler.Online)

	api.Get("/audit-log", authMiddleware.RequireAuth, middleware.AdminOnly, auditHandler.List)

	return &testEnv{app: app, db: db, presence: presence, audit: auditService}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.Role) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		StudentID:    fmt.Sprintf("TEST-%05d", testUserCounter.Add(1)),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

// auditRowCount polls briefly because audit writes go through an async
// queue.
func auditRowCount(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()

	var count int64
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&count).Error; err != nil {
			t.Fatalf("counting audit rows: %v", err)
		}
		if count > 0 || time.Now().After(deadline) {
			return count
		}
		time.Sleep(20 * time.Millisecond)
	}
}
