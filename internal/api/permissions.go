package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
)

// Permission decides whether the caller may act on recipe
type Permission func(c *gin.Context, recipe *models.Recipe) bool

// ReadOnly allows safe methods
func ReadOnly(c *gin.Context, _ *models.Recipe) bool {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// IsAuthor allows the recipe's author
func IsAuthor(c *gin.Context, recipe *models.Recipe) bool {
	id := middleware.UserID(c)
	return id != nil && recipe != nil && *id == recipe.AuthorID
}

// Any allows the request when at least one of perms does
func Any(perms ...Permission) Permission {
	return func(c *gin.Context, recipe *models.Recipe) bool {
		for _, p := range perms {
			if p(c, recipe) {
				return true
			}
		}
		return false
	}
}

// AuthorOrReadOnly guards recipe writes
var AuthorOrReadOnly = Any(IsAuthor, ReadOnly)
