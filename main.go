package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sprey412/backup-be/internal/api"
	"github.com/Sprey412/backup-be/internal/config"
	"github.com/Sprey412/backup-be/internal/database"
	"github.com/Sprey412/backup-be/internal/logger"
	"github.com/Sprey412/backup-be/internal/monitoring"
	"github.com/Sprey412/backup-be/internal/services"
	"github.com/Sprey412/backup-be/internal/websocket"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Ensure the base directory for backup archives exists
	if err := os.MkdirAll(cfg.BackupRoot, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create base backup directory")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, hub)
	archiveService := services.NewArchiveService(db, eventService)
	sessionService := services.NewSessionService(archiveService, eventService, cfg.BackupRoot)
	userService := services.NewUserService(db)

	// Set up and run the backup volume disk monitor
	diskMonitor := monitoring.NewDiskMonitor(eventService, cfg.BackupRoot, uint64(cfg.MinFreeSpace), time.Duration(cfg.MonitorPeriod)*time.Second)
	go diskMonitor.Run()

	// Set up router
	router := api.NewRouter(hub, sessionService, archiveService, eventService, userService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	diskMonitor.Stop()

	// Stop every session's schedule; in-flight passes finish on their own.
	for _, session := range sessionService.GetAllSessions() {
		if err := sessionService.StopSession(session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to stop session during shutdown")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
