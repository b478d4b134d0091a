package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Sprey412/backup-be/internal/api/handlers"
	"github.com/Sprey412/backup-be/internal/auth"
	"github.com/Sprey412/backup-be/internal/services"
	"github.com/Sprey412/backup-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *websocket.Hub,
	sessionService services.SessionServiceProvider,
	archiveService services.ArchiveServiceProvider,
	eventService services.EventServiceProvider,
	userService services.UserServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	archiveHandler := handlers.NewArchiveHandler(archiveService)
	eventHandler := handlers.NewEventHandler(eventService)
	userHandler := handlers.NewUserHandler(userService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoints for the live event/log stream
		r.Get("/ws", wsHandler.Serve)
		r.Get("/ws/sessions/{id}", wsHandler.Serve)

		// Public authentication endpoints
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware())

			r.Get("/users/me", userHandler.Me)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.GetAll)
				r.Post("/", sessionHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Delete("/", sessionHandler.Delete)
					r.Post("/stop", sessionHandler.Stop)
					r.Post("/backup", sessionHandler.TriggerBackup)
					r.Get("/archives", archiveHandler.GetAllForSession)
				})
			})

			r.Route("/archives", func(r chi.Router) {
				r.Get("/", archiveHandler.GetAll)
				r.Route("/{archiveId}", func(r chi.Router) {
					r.Get("/", archiveHandler.Get)
					r.Delete("/", archiveHandler.Delete)
					r.Post("/restore", archiveHandler.Restore)
				})
			})

			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
