package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Handlers groups the API handlers mounted by SetupRouter
type Handlers struct {
	Auth    *api.AuthHandler
	Users   *api.UserHandler
	Catalog *api.CatalogHandler
	Recipes *api.RecipeHandler
	Health  *api.HealthHandler
}

// Options configures the engine-wide middleware
type Options struct {
	CORSOrigins []string
	// MediaURL and MediaDir serve locally stored images; empty disables it
	MediaURL string
	MediaDir string
	Logger   *zap.Logger
}

// SetupRouter configures the application routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS(opts.CORSOrigins),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", h.Health.HealthCheck)
	if opts.MediaURL != "" && opts.MediaDir != "" {
		router.Static(opts.MediaURL, opts.MediaDir)
	}

	v1 := router.Group("/api/v1")
	h.Auth.RegisterRoutes(v1)
	h.Users.RegisterRoutes(v1)
	h.Catalog.RegisterRoutes(v1)
	h.Recipes.RegisterRoutes(v1)

	return router
}
