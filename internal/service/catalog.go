package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// CatalogService serves the read-only tag and ingredient catalogs
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]types.TagResponse, len(tags))
	for i := range tags {
		out[i] = tagView(&tags[i])
	}
	return out, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uuid.UUID) (types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.TagResponse{}, fmt.Errorf("tag %s: %w", id, ErrNotFound)
		}
		return types.TagResponse{}, fmt.Errorf("failed to get tag: %w", err)
	}
	return tagView(&tag), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListIngredients lists ingredients by name. A non-empty prefix keeps only
// names starting with it, ignoring case.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	query := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, strings.ToLower(likeEscaper.Replace(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	out := make([]types.IngredientResponse, len(ingredients))
	for i := range ingredients {
		out[i] = ingredientView(&ingredients[i])
	}
	return out, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uuid.UUID) (types.IngredientResponse, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.IngredientResponse{}, fmt.Errorf("ingredient %s: %w", id, ErrNotFound)
		}
		return types.IngredientResponse{}, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return ingredientView(&ingredient), nil
}

// ImportIngredients bulk inserts ingredients, skipping exact duplicates of
// an existing (name, unit) pair. It returns the number inserted.
func (s *CatalogService) ImportIngredients(ctx context.Context, items []models.Ingredient) (int, error) {
	db := s.db.WithContext(ctx)

	var existing []models.Ingredient
	if err := db.Select("name", "measurement_unit").Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to load ingredients: %w", err)
	}
	seen := make(map[[2]string]bool, len(existing))
	for _, ing := range existing {
		seen[[2]string{ing.Name, ing.MeasurementUnit}] = true
	}

	var fresh []models.Ingredient
	for _, ing := range items {
		key := [2]string{ing.Name, ing.MeasurementUnit}
		if ing.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, models.Ingredient{Name: ing.Name, MeasurementUnit: ing.MeasurementUnit})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := db.CreateInBatches(fresh, 500).Error; err != nil {
		return 0, fmt.Errorf("failed to import ingredients: %w", err)
	}
	return len(fresh), nil
}

// ImportTags inserts tags, skipping any that collide with an existing tag.
func (s *CatalogService) ImportTags(ctx context.Context, items []models.Tag) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tags := make([]models.Tag, len(items))
	for i, t := range items {
		tags[i] = models.Tag{Name: t.Name, Color: t.Color, Slug: t.Slug}
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to import tags: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func tagView(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func ingredientView(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}
