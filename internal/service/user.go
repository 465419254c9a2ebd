package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Pagination selects one page of a listing. Page is 1-based.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

func (p Pagination) scope(db *gorm.DB) *gorm.DB {
	if p.Limit <= 0 {
		return db
	}
	return db.Limit(p.Limit).Offset(p.offset())
}

// UserService reads user profiles
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUsers returns one page of users, newest first, and the total count
func (s *UserService) ListUsers(ctx context.Context, page Pagination) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := db.Scopes(page.scope).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// ViewUsers renders users for viewer. is_subscribed is computed with one
// query for the whole slice and is false for an anonymous viewer.
func (s *UserService) ViewUsers(ctx context.Context, users []models.User, viewer *uuid.UUID) ([]types.UserResponse, error) {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	followed, err := followedAmong(ctx, s.db, viewer, ids)
	if err != nil {
		return nil, err
	}

	views := make([]types.UserResponse, len(users))
	for i := range users {
		views[i] = userView(&users[i], followed[users[i].ID])
	}
	return views, nil
}

// ViewUser renders a single user for viewer
func (s *UserService) ViewUser(ctx context.Context, user *models.User, viewer *uuid.UUID) (types.UserResponse, error) {
	views, err := s.ViewUsers(ctx, []models.User{*user}, viewer)
	if err != nil {
		return types.UserResponse{}, err
	}
	return views[0], nil
}

func userView(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// followedAmong reports which of authors the viewer follows
func followedAmong(ctx context.Context, db *gorm.DB, viewer *uuid.UUID, authors []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool)
	if viewer == nil || len(authors) == 0 {
		return set, nil
	}

	var ids []uuid.UUID
	err := db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", *viewer, authors).
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
