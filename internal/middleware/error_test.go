package middleware_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestErrorHandler_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"validation", &service.ValidationError{Field: "ingredients", Message: "bad"}, http.StatusBadRequest, "ingredients"},
		{"duplicate", fmt.Errorf("recipe already in favorites: %w", service.ErrAlreadyExists), http.StatusBadRequest, ""},
		{"self follow", service.ErrSelfFollow, http.StatusBadRequest, ""},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, ""},
		{"not found", fmt.Errorf("recipe x: %w", service.ErrNotFound), http.StatusNotFound, ""},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ErrorHandler(zap.NewNop()))
			r.GET("/", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, w.Code)
			var body middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.field, body.Field)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body.Error, "internal details are not leaked")
			}
		})
	}
}

func TestErrorHandler_BindingErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	r.POST("/users", func(c *gin.Context) {
		var req types.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
		c.Status(http.StatusCreated)
	})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"email":"a@b.io","username":"ann.s","first_name":"A","last_name":"S","password":"longenough"}`, http.StatusCreated, ""},
		{"bad username", `{"email":"a@b.io","username":"ann s!","first_name":"A","last_name":"S","password":"longenough"}`, http.StatusBadRequest, "username"},
		{"missing email", `{"username":"ann","first_name":"A","last_name":"S","password":"longenough"}`, http.StatusBadRequest, "email"},
		{"malformed json", `{"email":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusBadRequest {
				var body middleware.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.field, body.Field)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(zap.NewNop()), middleware.Logger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
