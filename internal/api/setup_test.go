package api_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	db := testhelpers.SetupSQLite(t)
	log := zap.NewNop()
	images := service.NewLocalImageStore(t.TempDir(), "/media", log)
	auth := service.NewAuthService(db, service.NewGormTokenStore(db), "test-secret", time.Hour, log)
	recipes := service.NewRecipeService(db, images, log)

	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	v1 := router.Group("/api/v1")
	api.NewAuthHandler(auth).RegisterRoutes(v1)
	api.NewUserHandler(auth, service.NewUserService(db), service.NewFollowService(db, recipes)).RegisterRoutes(v1)
	api.NewCatalogHandler(service.NewCatalogService(db)).RegisterRoutes(v1)
	api.NewRecipeHandler(auth, recipes, service.NewListService(db), service.NewShoppingService(db), nil).RegisterRoutes(v1)
	router.GET("/health", api.NewHealthHandler(db).HealthCheck)

	return &testAPI{router: router, db: db, auth: auth}
}

// userWithToken creates a user and signs a token for it
func (a *testAPI) userWithToken(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user := testhelpers.CreateUser(t, a.db, username)
	token, err := a.auth.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
