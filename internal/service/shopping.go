package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShoppingLine is the total amount of one ingredient across a cart
type ShoppingLine struct {
	Name            string
	TotalAmount     int64
	MeasurementUnit string
}

func (l ShoppingLine) String() string {
	return fmt.Sprintf("%s, %d %s", l.Name, l.TotalAmount, l.MeasurementUnit)
}

// ShoppingService builds shopping lists from a user's cart
type ShoppingService struct {
	db *gorm.DB
}

func NewShoppingService(db *gorm.DB) *ShoppingService {
	return &ShoppingService{db: db}
}

// Aggregate sums ingredient amounts over every recipe in the user's cart.
// Rows are grouped by ingredient name and unit, not by ingredient id, and
// ordered by name then unit.
func (s *ShoppingService) Aggregate(ctx context.Context, userID uuid.UUID) ([]ShoppingLine, error) {
	var lines []ShoppingLine
	err := s.db.WithContext(ctx).
		Table("shopping_lists").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_lists.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_lists.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return lines, nil
}

// Report renders lines as newline separated "name, total unit" entries
func Report(lines []ShoppingLine) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}
