package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
)

// ListService toggles recipes in a user's favorites and shopping cart.
// Adds rely on the unique (user, recipe) constraint; there is no pre-check.
type ListService struct {
	db *gorm.DB
}

func NewListService(db *gorm.DB) *ListService {
	return &ListService{db: db}
}

func (s *ListService) insert(ctx context.Context, row interface{}, duplicate string) error {
	err := s.db.WithContext(ctx).Create(row).Error
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", duplicate, ErrAlreadyExists)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("recipe or user: %w", ErrNotFound)
	default:
		return fmt.Errorf("failed to add recipe: %w", err)
	}
}

func (s *ListService) remove(ctx context.Context, model interface{}, userID, recipeID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(model).Error
	if err != nil {
		return fmt.Errorf("failed to remove recipe: %w", err)
	}
	return nil
}

// AddFavorite fails with ErrAlreadyExists when the recipe is already a favorite
func (s *ListService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.insert(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}, "recipe already in favorites")
}

// RemoveFavorite is a no-op when the recipe is not a favorite
func (s *ListService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, &models.Favorite{}, userID, recipeID)
}

// AddToCart fails with ErrAlreadyExists when the recipe is already in the cart
func (s *ListService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.insert(ctx, &models.ShoppingList{UserID: userID, RecipeID: recipeID}, "recipe already in shopping cart")
}

// RemoveFromCart is a no-op when the recipe is not in the cart
func (s *ListService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, &models.ShoppingList{}, userID, recipeID)
}
