package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fitkit/authserver/config"
	"github.com/fitkit/authserver/internal/db"
	"github.com/fitkit/authserver/internal/handlers"
	"github.com/fitkit/authserver/internal/notify"
	"github.com/fitkit/authserver/internal/services"
	"github.com/fitkit/authserver/internal/store"
	"github.com/fitkit/authserver/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server and its owned resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	sender     notify.Sender
}

// New constructs a Server: database, repository, token issuer, notifier,
// auth service, and the chi router with stock middleware.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	sender, err := notify.NewSenderFromConfig(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	userRepo := store.NewUserRepository(dbConn)
	issuer := token.NewIssuer(jwtSecret)
	authService := services.NewAuthService(userRepo, issuer, sender, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if cfg.Env != "production" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}))
	}

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, issuer)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		sender:     sender,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown closes the server and its resources.
func (s *Server) Shutdown() error {
	if s.sender != nil {
		_ = s.sender.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
