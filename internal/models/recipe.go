package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Recipe struct {
	ID          uuid.UUID          `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	AuthorID    uuid.UUID          `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 0" json:"cooking_time"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Tags        []RecipeTag        `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"tags"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeIngredient carries the per-recipe amount of an ingredient.
// Ingredients referenced here cannot be deleted.
type RecipeIngredient struct {
	RecipeID     uuid.UUID  `gorm:"type:varchar(36);primaryKey" json:"recipe_id"`
	IngredientID uuid.UUID  `gorm:"type:varchar(36);primaryKey;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT" json:"ingredient"`
	Amount       int        `gorm:"not null;default:0;check:chk_recipe_ingredients_amount,amount >= 0" json:"amount"`
}

type RecipeTag struct {
	RecipeID uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"recipe_id"`
	TagID    uuid.UUID `gorm:"type:varchar(36);primaryKey;index" json:"tag_id"`
	Tag      Tag       `gorm:"foreignKey:TagID;constraint:OnDelete:RESTRICT" json:"tag"`
}
