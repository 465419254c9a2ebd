package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	http   *http.Server
	log    *zap.Logger
}

// New wires the services and handlers. redisClient may be nil, which keeps
// revoked tokens in the database and disables rate limiting.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images service.ImageStore, log *zap.Logger) (*Server, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	var (
		tokens  service.TokenStore = service.NewGormTokenStore(db)
		limiter *middleware.RateLimiter
	)
	if redisClient != nil {
		tokens = service.NewRedisTokenStore(redisClient)
		if cfg.RecipeRateLimit > 0 {
			limiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeRateLimit, log)
		}
	}

	authService := service.NewAuthService(db, tokens, cfg.JWTSecret, cfg.TokenTTL, log)
	recipeService := service.NewRecipeService(db, images, log)

	handlers := router.Handlers{
		Auth:    api.NewAuthHandler(authService),
		Users:   api.NewUserHandler(authService, service.NewUserService(db), service.NewFollowService(db, recipeService)),
		Catalog: api.NewCatalogHandler(service.NewCatalogService(db)),
		Recipes: api.NewRecipeHandler(authService, recipeService, service.NewListService(db), service.NewShoppingService(db), limiter),
		Health:  api.NewHealthHandler(db),
	}

	opts := router.Options{CORSOrigins: cfg.CORSOrigins, Logger: log}
	if strings.EqualFold(cfg.StorageBackend, "local") {
		opts.MediaURL = cfg.MediaURL
		opts.MediaDir = cfg.MediaDir
	}

	return &Server{
		cfg:    cfg,
		router: router.SetupRouter(handlers, opts),
		log:    log.Named("server"),
	}, nil
}

// Handler exposes the routed engine
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    net.JoinHostPort(s.cfg.ServerHost, s.cfg.ServerPort),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
