package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handlers"
	"taskboard/internal/services"
	"taskboard/internal/websocket"
	"taskboard/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	ctx := context.Background()

	// Initialize database
	db, err := database.NewPostgresDB(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	// Initialize services
	authService := auth.NewService(db, cfg.JWT)
	projectService := services.NewProjectService(db)
	taskService := services.NewTaskService(db)

	// Real-time hub; room joins are checked against project membership
	hub := websocket.NewHub(cfg.Realtime, projectService)
	hubCtx, stopHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	router := &handlers.Router{
		Auth:           handlers.NewAuthHandlers(authService),
		Projects:       handlers.NewProjectHandlers(projectService, authService),
		Tasks:          handlers.NewTaskHandlers(taskService, authService),
		WebSocket:      handlers.NewWebSocketHandlers(authService, hub, cfg.Server.AllowedOrigins),
		System:         handlers.NewSystemHandlers(db, hub, authService),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			logger.Info("Server shutting down...")
			return server.Shutdown(ctx)
		},
		"realtime-hub": func(ctx context.Context) error {
			stopHub()
			select {
			case <-hub.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	exitCode := <-wait
	if err := db.Close(); err != nil {
		logger.Error("Error closing database: %v", err)
	}
	logger.Info("Server stopped")
	os.Exit(exitCode)
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST   /api/auth/register")
	logger.Info("   POST   /api/auth/login")
	logger.Info("   GET    /api/auth/me")
	logger.Info("   POST   /api/auth/logout")
	logger.Info("   GET    /api/projects")
	logger.Info("   POST   /api/projects")
	logger.Info("   GET    /api/projects/{id}")
	logger.Info("   PUT    /api/projects/{id}")
	logger.Info("   DELETE /api/projects/{id}")
	logger.Info("   POST   /api/projects/{id}/members")
	logger.Info("   DELETE /api/projects/{id}/members/{userId}")
	logger.Info("   GET    /api/tasks/project/{projectId}")
	logger.Info("   POST   /api/tasks/project/{projectId}")
	logger.Info("   GET    /api/tasks/{id}")
	logger.Info("   PUT    /api/tasks/{id}")
	logger.Info("   PATCH  /api/tasks/{id}/status")
	logger.Info("   DELETE /api/tasks/{id}")
	logger.Info("   POST   /api/tasks/{id}/comments")
	logger.Info("   DELETE /api/tasks/comments/{commentId}")
	logger.Info("   GET    /api/users/online")
	logger.Info("   GET    /api/health")
}
