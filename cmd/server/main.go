package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campushub/backend/internal/config"
	"github.com/campushub/backend/internal/database"
	"github.com/campushub/backend/internal/handlers"
	"github.com/campushub/backend/internal/middleware"
	"github.com/campushub/backend/internal/services"
	"github.com/campushub/backend/internal/storage"
	"github.com/campushub/backend/pkg/logger"
	"github.com/campushub/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var mediaStore *storage.MediaStore
	if cfg.MinIO.Enabled {
		mediaStore, err = storage.NewMediaStore(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := mediaStore.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring media bucket: %v", err)
		}
	}

	var presence services.Presence
	if cfg.Redis.Enabled {
		presence = services.NewRedisPresence(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Presence.TTL)
	} else {
		presence = services.NewMemoryPresence(cfg.Presence.TTL)
	}

	auditService := services.NewAuditService(db)
	defer auditService.Close()

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db, auditService)
	postsHandler := handlers.NewPostsHandler(db, auditService, presence)
	pollsHandler := handlers.NewPollsHandler(db, auditService, presence)
	commentsHandler := handlers.NewCommentsHandler(db, auditService, presence)
	eventsHandler := handlers.NewEventsHandler(db)
	mediaHandler := handlers.NewMediaHandler(mediaStore, cfg.Media)
	presenceHandler := handlers.NewPresenceHandler(presence)
	auditHandler := handlers.NewAuditHandler(db)

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

	// post and poll reads are public; the identity resolver treats an
	// unauthenticated viewer as a student, so anonymity holds without a
	// session
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
