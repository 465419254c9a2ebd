package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func testConfig(mediaDir string) *config.Config {
	return &config.Config{
		ServerHost:      "127.0.0.1",
		ServerPort:      "0",
		ShutdownTimeout: time.Second,
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		StorageBackend:  "local",
		MediaDir:        mediaDir,
		MediaURL:        "/media",
	}
}

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupSQLite(t)
	mediaDir := t.TempDir()
	cfg := testConfig(mediaDir)

	srv, err := New(cfg, db, nil, service.NewLocalImageStore(mediaDir, cfg.MediaURL, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNew_ServesMedia(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupSQLite(t)
	mediaDir := t.TempDir()
	cfg := testConfig(mediaDir)
	require.NoError(t, os.MkdirAll(filepath.Join(mediaDir, "recipes", "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "recipes", "images", "a.txt"), []byte("hi"), 0o644))

	srv, err := New(cfg, db, nil, service.NewLocalImageStore(mediaDir, cfg.MediaURL, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/recipes/images/a.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Body.String())
}

func TestStart_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupSQLite(t)
	cfg := testConfig(t.TempDir())

	srv, err := New(cfg, db, nil, service.NewLocalImageStore(cfg.MediaDir, cfg.MediaURL, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
