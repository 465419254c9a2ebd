package service_test

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type fixture struct {
	db       *gorm.DB
	mediaDir string
	recipes  *service.RecipeService
	lists    *service.ListService
	follows  *service.FollowService
	users    *service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	dir := t.TempDir()
	recipes := service.NewRecipeService(db, service.NewLocalImageStore(dir, "/media", zap.NewNop()), zap.NewNop())
	return &fixture{
		db:       db,
		mediaDir: dir,
		recipes:  recipes,
		lists:    service.NewListService(db),
		follows:  service.NewFollowService(db, recipes),
		users:    service.NewUserService(db),
	}
}

func writeRequest(name string, tags []*models.Tag, amounts ...types.IngredientAmount) *types.RecipeWriteRequest {
	req := &types.RecipeWriteRequest{
		Ingredients: amounts,
		Image:       testhelpers.PNGDataURI,
		Name:        name,
		Text:        "Boil everything.",
		CookingTime: 15,
	}
	for _, tag := range tags {
		req.Tags = append(req.Tags, tag.ID)
	}
	return req
}

func amount(ing *models.Ingredient, n int) types.IngredientAmount {
	return types.IngredientAmount{ID: ing.ID, Amount: n}
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
