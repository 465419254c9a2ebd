package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorHandler renders the last error a handler pushed with c.Error, unless
// the handler already wrote a response
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("errors")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		status, body := Render(last)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(last.Err),
			)
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// Render maps an error onto a status code and response body
func Render(ginErr *gin.Error) (int, ErrorResponse) {
	err := ginErr.Err

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return http.StatusBadRequest, ErrorResponse{Error: fieldMessage(fe), Field: fe.Field()}
	}
	if ve, ok := service.AsValidationError(err); ok {
		return http.StatusBadRequest, ErrorResponse{Error: ve.Message, Field: ve.Field}
	}
	if ginErr.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, ErrorResponse{Error: "malformed request: " + err.Error()}
	}

	switch {
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrSelfFollow):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: service.ErrForbidden.Error()}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return "ensure this field has at least " + fe.Param() + " characters"
	case "max":
		return "ensure this field has no more than " + fe.Param() + " characters"
	case "username":
		return "enter a valid username; only letters, digits and @/./+/-/_ are allowed"
	}
	return fmt.Sprintf("failed on the %s check", fe.Tag())
}
