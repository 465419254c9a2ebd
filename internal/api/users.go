package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves accounts, profiles and subscriptions
type UserHandler struct {
	authService   service.IAuthService
	userService   service.IUserService
	followService service.IFollowService
}

func NewUserHandler(authService service.IAuthService, userService service.IUserService, followService service.IFollowService) *UserHandler {
	return &UserHandler{
		authService:   authService,
		userService:   userService,
		followService: followService,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", optional, h.ListUsers)
		users.GET("/me", required, h.Me)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/:id", optional, h.GetUser)
		users.POST("/:id/subscribe", required, h.Subscribe)
		users.DELETE("/:id/subscribe", required, h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.userService.ViewUser(c.Request.Context(), user, nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	page := pagination(c)

	users, total, err := h.userService.ListUsers(ctx, page)
	if err != nil {
		fail(c, err)
		return
	}
	views, err := h.userService.ViewUsers(ctx, users, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, views))
}

func (h *UserHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.UserID(c)

	user, err := h.userService.GetUser(ctx, *viewer)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.userService.ViewUser(ctx, user, viewer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.userService.GetUser(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.userService.ViewUser(ctx, user, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	viewer := middleware.UserID(c)
	if err := h.authService.SetPassword(c.Request.Context(), *viewer, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page := pagination(c)
	viewer := middleware.UserID(c)

	subs, total, err := h.followService.Subscriptions(c.Request.Context(), *viewer, page, queryInt(c, "recipes_limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, subs))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewer := middleware.UserID(c)

	author, err := h.userService.GetUser(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.followService.Follow(ctx, *viewer, author.ID); err != nil {
		fail(c, err)
		return
	}
	sub, err := h.followService.Subscription(ctx, *viewer, author, queryInt(c, "recipes_limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.userService.GetUser(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if err := h.followService.Unfollow(ctx, *middleware.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
