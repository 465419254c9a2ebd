package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the password of every user created by CreateUser
const TestPassword = "testpassword123"

// PNGBase64 is a 1x1 transparent PNG
const PNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// PNGDataURI is PNGBase64 as a data URI
const PNGDataURI = "data:image/png;base64," + PNGBase64

// CreateUser inserts a user named username with TestPassword
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hashed),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTag inserts a tag whose color is derived from slug
func CreateTag(t *testing.T, db *gorm.DB, slug string) *models.Tag {
	t.Helper()

	color := fmt.Sprintf("#%06x", uuid.New().ID()&0xffffff)
	tag := &models.Tag{Name: slug, Color: color, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()

	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create test ingredient: %v", err)
	}
	return ingredient
}

// RecipeFixture describes a recipe inserted directly by CreateRecipe
type RecipeFixture struct {
	Name        string
	Amounts     map[*models.Ingredient]int
	Tags        []*models.Tag
	CookingTime int
}

// CreateRecipe inserts a recipe with its associations, bypassing the service
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, f RecipeFixture) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        f.Name,
		Text:        "Mix and serve.",
		Image:       "recipes/images/" + uuid.NewString() + ".png",
		CookingTime: f.CookingTime,
	}
	if err := db.Omit("Author", "Ingredients", "Tags").Create(recipe).Error; err != nil {
		t.Fatalf("failed to create test recipe: %v", err)
	}
	for ing, amount := range f.Amounts {
		row := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ing.ID, Amount: amount}
		if err := db.Omit("Ingredient").Create(&row).Error; err != nil {
			t.Fatalf("failed to create test recipe ingredient: %v", err)
		}
	}
	for _, tag := range f.Tags {
		row := models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}
		if err := db.Omit("Tag").Create(&row).Error; err != nil {
			t.Fatalf("failed to create test recipe tag: %v", err)
		}
	}
	return recipe
}
