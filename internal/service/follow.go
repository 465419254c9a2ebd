package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// FollowService manages subscriptions between users
type FollowService struct {
	db      *gorm.DB
	recipes *RecipeService
}

func NewFollowService(db *gorm.DB, recipes *RecipeService) *FollowService {
	return &FollowService{db: db, recipes: recipes}
}

// Follow subscribes follower to following. Following yourself is rejected
// before any write; a repeated follow fails on the unique constraint.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	if followerID == followingID {
		return ErrSelfFollow
	}

	err := s.db.WithContext(ctx).Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("already subscribed: %w", ErrAlreadyExists)
	case database.IsCheckViolation(err):
		return ErrSelfFollow
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("user %s: %w", followingID, ErrNotFound)
	default:
		return fmt.Errorf("failed to subscribe: %w", err)
	}
}

// Unfollow removes the subscription if present
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// Subscriptions returns one page of the authors viewer follows, each with
// up to recipesLimit of their newest recipes. A non-positive recipesLimit
// includes every recipe.
func (s *FollowService) Subscriptions(ctx context.Context, viewer uuid.UUID, page Pagination, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	db := s.db.WithContext(ctx)
	followed := db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", viewer)

	var total int64
	if err := db.Model(&models.User{}).Where("id IN (?)", followed).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := db.Where("id IN (?)", followed).
		Scopes(page.scope).
		Order("username").
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		sub, err := s.subscription(ctx, &authors[i], true, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sub)
	}
	return out, total, nil
}

// Subscription renders author as seen by viewer, with a recipe preview
func (s *FollowService) Subscription(ctx context.Context, viewer uuid.UUID, author *models.User, recipesLimit int) (types.SubscriptionResponse, error) {
	followed, err := followedAmong(ctx, s.db, &viewer, []uuid.UUID{author.ID})
	if err != nil {
		return types.SubscriptionResponse{}, err
	}
	return s.subscription(ctx, author, followed[author.ID], recipesLimit)
}

func (s *FollowService) subscription(ctx context.Context, author *models.User, subscribed bool, recipesLimit int) (types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return types.SubscriptionResponse{}, fmt.Errorf("failed to count recipes: %w", err)
	}

	query := db.Where("author_id = ?", author.ID).Order("created_at DESC")
	if recipesLimit > 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return types.SubscriptionResponse{}, fmt.Errorf("failed to load recipes: %w", err)
	}

	short := make([]types.ShortRecipeResponse, len(recipes))
	for i := range recipes {
		short[i] = s.recipes.ShortRecipe(&recipes[i])
	}

	return types.SubscriptionResponse{
		UserResponse: userView(author, subscribed),
		Recipes:      short,
		RecipesCount: count,
	}, nil
}
