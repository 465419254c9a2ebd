package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListFilename = "shopping_list.txt"

// RecipeHandler serves recipes, favorites and the shopping cart
type RecipeHandler struct {
	authService     service.IAuthService
	recipeService   service.IRecipeService
	listService     service.IListService
	shoppingService service.IShoppingService
	createLimiter   *middleware.RateLimiter
}

// NewRecipeHandler creates a recipe handler. createLimiter may be nil, in
// which case recipe creation is not rate limited.
func NewRecipeHandler(
	authService service.IAuthService,
	recipeService service.IRecipeService,
	listService service.IListService,
	shoppingService service.IShoppingService,
	createLimiter *middleware.RateLimiter,
) *RecipeHandler {
	return &RecipeHandler{
		authService:     authService,
		recipeService:   recipeService,
		listService:     listService,
		shoppingService: shoppingService,
		createLimiter:   createLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	create := []gin.HandlerFunc{required}
	if h.createLimiter != nil {
		create = append(create, h.createLimiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.PATCH("/:id", required, h.UpdateRecipe)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	filter := service.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Pagination:       pagination(c),
	}
	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			fail(c, &service.ValidationError{Field: "author", Message: fmt.Sprintf("%q is not a valid user id", author)})
			return
		}
		filter.AuthorID = &id
	}
	viewer := middleware.UserID(c)

	recipes, total, err := h.recipeService.ListRecipes(ctx, filter, viewer)
	if err != nil {
		fail(c, err)
		return
	}
	views, err := h.recipeService.ViewRecipes(ctx, recipes, viewer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, filter.Pagination, total, views))
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	view, err := h.recipeService.ViewRecipe(c.Request.Context(), recipe, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, view)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, ok := h.loadRecipe(c)
	if !ok {
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), *middleware.UserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// UpdateRecipe replaces the recipe's fields, ingredients and tags
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipe, ok := h.loadRecipe(c)
	if !ok || !h.authorize(c, recipe) {
		return
	}
	var req types.RecipeWriteRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.recipeService.UpdateRecipe(c.Request.Context(), recipe, &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, updated)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipe, ok := h.loadRecipe(c)
	if !ok || !h.authorize(c, recipe) {
		return
	}
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), recipe); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addToList(c, h.listService.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeFromList(c, h.listService.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addToList(c, h.listService.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeFromList(c, h.listService.RemoveFromCart)
}

// DownloadShoppingCart sends the aggregated cart as a plain text attachment
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	lines, err := h.shoppingService.Aggregate(c.Request.Context(), *middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", shoppingListFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.Report(lines)))
}

type listOp func(ctx context.Context, userID, recipeID uuid.UUID) error

func (h *RecipeHandler) addToList(c *gin.Context, add listOp) {
	recipe, ok := h.loadRecipe(c)
	if !ok {
		return
	}
	if err := add(c.Request.Context(), *middleware.UserID(c), recipe.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.recipeService.ShortRecipe(recipe))
}

func (h *RecipeHandler) removeFromList(c *gin.Context, remove listOp) {
	recipe, ok := h.loadRecipe(c)
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), *middleware.UserID(c), recipe.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) loadRecipe(c *gin.Context) (*models.Recipe, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return recipe, true
}

func (h *RecipeHandler) authorize(c *gin.Context, recipe *models.Recipe) bool {
	if !AuthorOrReadOnly(c, recipe) {
		fail(c, service.ErrForbidden)
		return false
	}
	return true
}
