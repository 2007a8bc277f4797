package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/cubeforge-be/internal/api/handlers"
	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/config"
	"github.com/isdelr/cubeforge-be/internal/services"
)

const healthTimeout = 2 * time.Second

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Users       services.UserServiceProvider
	Scenes      services.SceneServiceProvider
	Events      services.EventServiceProvider
	Tokens      handlers.TokenIssuer
	Guard       *auth.Guard
	Healthcheck func(context.Context) error
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg config.HTTPConfig, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens, cfg.MaxBodyBytes)
	sceneHandler := handlers.NewSceneHandler(deps.Scenes, cfg.MaxBodyBytes)
	eventHandler := handlers.NewEventHandler(deps.Events)
	healthHandler := handlers.NewHealthHandler(deps.Healthcheck, healthTimeout)

	// Public routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Post("/token", userHandler.Token)
	r.Get("/healthz", healthHandler.Serve)

	// Bearer-protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Guard.Middleware)

		r.Post("/saveCubeData", sceneHandler.Save)
		r.Get("/getCubeData", sceneHandler.Get)
		r.Get("/me", userHandler.GetMe)
		r.Get("/events", eventHandler.GetRecent)
	})

	return r
}
