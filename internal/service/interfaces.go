package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	SetPassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// IUserService defines the interface for reading user profiles
type IUserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, page Pagination) ([]models.User, int64, error)
	ViewUser(ctx context.Context, user *models.User, viewer *uuid.UUID) (types.UserResponse, error)
	ViewUsers(ctx context.Context, users []models.User, viewer *uuid.UUID) ([]types.UserResponse, error)
}

// IFollowService defines the interface for subscriptions
type IFollowService interface {
	Follow(ctx context.Context, followerID, followingID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error
	Subscriptions(ctx context.Context, viewer uuid.UUID, page Pagination, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
	Subscription(ctx context.Context, viewer uuid.UUID, author *models.User, recipesLimit int) (types.SubscriptionResponse, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uuid.UUID, req *types.RecipeWriteRequest) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *models.Recipe, req *types.RecipeWriteRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, recipe *models.Recipe) error
	ListRecipes(ctx context.Context, f RecipeFilter, viewer *uuid.UUID) ([]models.Recipe, int64, error)
	ViewRecipe(ctx context.Context, recipe *models.Recipe, viewer *uuid.UUID) (types.RecipeResponse, error)
	ViewRecipes(ctx context.Context, recipes []models.Recipe, viewer *uuid.UUID) ([]types.RecipeResponse, error)
	ShortRecipe(recipe *models.Recipe) types.ShortRecipeResponse
}

// IListService defines the interface for favorites and the shopping cart
type IListService interface {
	AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error
	RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error
}

// IShoppingService defines the interface for shopping list aggregation
type IShoppingService interface {
	Aggregate(ctx context.Context, userID uuid.UUID) ([]ShoppingLine, error)
}

// ICatalogService defines the interface for the tag and ingredient catalogs
type ICatalogService interface {
	ListTags(ctx context.Context) ([]types.TagResponse, error)
	GetTag(ctx context.Context, id uuid.UUID) (types.TagResponse, error)
	ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (types.IngredientResponse, error)
}

var (
	_ IAuthService     = (*AuthService)(nil)
	_ IUserService     = (*UserService)(nil)
	_ IFollowService   = (*FollowService)(nil)
	_ IRecipeService   = (*RecipeService)(nil)
	_ IListService     = (*ListService)(nil)
	_ IShoppingService = (*ShoppingService)(nil)
	_ ICatalogService  = (*CatalogService)(nil)
)
