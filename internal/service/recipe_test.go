package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func countRows(t *testing.T, f *fixture, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateRecipe_StoresAssociations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	water := testhelpers.CreateIngredient(t, f.db, "Water", "ml")
	lunch := testhelpers.CreateTag(t, f.db, "lunch")
	soup := testhelpers.CreateTag(t, f.db, "soup")

	recipe, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{lunch, soup}, amount(salt, 5), amount(water, 500)))
	require.NoError(t, err)

	assert.Equal(t, "Soup", recipe.Name)
	assert.Equal(t, author.ID, recipe.Author.ID)
	assert.Len(t, recipe.Ingredients, 2)
	assert.Len(t, recipe.Tags, 2)
	assert.NotEmpty(t, recipe.Image)

	_, err = os.Stat(filepath.Join(f.mediaDir, filepath.FromSlash(recipe.Image)))
	assert.NoError(t, err, "image should be written to the media directory")
}

func TestCreateRecipe_DuplicateIngredientPersistsNothing(t *testing.T) {
	f := newFixture(t)
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	_, err := f.recipes.CreateRecipe(context.Background(), author.ID, writeRequest("Salty", []*models.Tag{tag}, amount(salt, 5), amount(salt, 10)))
	ve, ok := service.AsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	assert.Equal(t, "ingredients", ve.Field)
	assert.Contains(t, ve.Message, "Salt")

	assert.Zero(t, countRows(t, f, &models.Recipe{}))
	assert.Zero(t, countRows(t, f, &models.RecipeIngredient{}))
	assert.Zero(t, countRows(t, f, &models.RecipeTag{}))
}

func TestCreateRecipe_Rejections(t *testing.T) {
	f := newFixture(t)
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	tests := []struct {
		name   string
		mutate func(*types.RecipeWriteRequest)
		field  string
		target error
	}{
		{"no ingredients", func(r *types.RecipeWriteRequest) { r.Ingredients = nil }, "ingredients", nil},
		{"no tags", func(r *types.RecipeWriteRequest) { r.Tags = nil }, "tags", nil},
		{"negative amount", func(r *types.RecipeWriteRequest) { r.Ingredients[0].Amount = -1 }, "ingredients", nil},
		{"negative cooking time", func(r *types.RecipeWriteRequest) { r.CookingTime = -5 }, "cooking_time", nil},
		{"missing image", func(r *types.RecipeWriteRequest) { r.Image = "" }, "image", nil},
		{"bad image", func(r *types.RecipeWriteRequest) { r.Image = "not-base64!" }, "image", nil},
		{"unknown ingredient", func(r *types.RecipeWriteRequest) { r.Ingredients[0].ID = uuid.New() }, "", service.ErrNotFound},
		{"unknown tag", func(r *types.RecipeWriteRequest) { r.Tags = []uuid.UUID{uuid.New()} }, "", service.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := writeRequest("Bad", []*models.Tag{tag}, amount(salt, 1))
			tt.mutate(req)
			_, err := f.recipes.CreateRecipe(context.Background(), author.ID, req)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
				return
			}
			ve, ok := service.AsValidationError(err)
			require.True(t, ok, "expected a validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Zero(t, countRows(t, f, &models.Recipe{}))
}

func TestCreateRecipe_DuplicateTagCollapses(t *testing.T) {
	f := newFixture(t)
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	recipe, err := f.recipes.CreateRecipe(context.Background(), author.ID, writeRequest("Twice", []*models.Tag{tag, tag}, amount(salt, 1)))
	require.NoError(t, err)
	assert.Len(t, recipe.Tags, 1)
}

func TestUpdateRecipe_ReplacesSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	pepper := testhelpers.CreateIngredient(t, f.db, "Pepper", "g")
	lunch := testhelpers.CreateTag(t, f.db, "lunch")
	dinner := testhelpers.CreateTag(t, f.db, "dinner")

	recipe, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{lunch}, amount(salt, 5)))
	require.NoError(t, err)
	oldImage := recipe.Image

	req := writeRequest("Spicy soup", []*models.Tag{dinner}, amount(pepper, 2))
	req.Image = ""
	updated, err := f.recipes.UpdateRecipe(ctx, recipe, req)
	require.NoError(t, err)

	assert.Equal(t, "Spicy soup", updated.Name)
	assert.Equal(t, oldImage, updated.Image, "image is kept when not supplied")
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, pepper.ID, updated.Ingredients[0].IngredientID)
	assert.Equal(t, 2, updated.Ingredients[0].Amount)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, dinner.ID, updated.Tags[0].TagID)
	assert.EqualValues(t, 1, countRows(t, f, &models.RecipeIngredient{}))
}

func TestUpdateRecipe_InvalidLeavesRecipeUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	recipe, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{tag}, amount(salt, 5)))
	require.NoError(t, err)

	_, err = f.recipes.UpdateRecipe(ctx, recipe, writeRequest("Soup", []*models.Tag{tag}, amount(salt, 5), amount(salt, 1)))
	require.Error(t, err)

	reloaded, err := f.recipes.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Ingredients, 1)
	assert.Equal(t, 5, reloaded.Ingredients[0].Amount)
}

// failTagInserts makes every later insert into recipe_tags fail
func failTagInserts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_recipe_tags", func(tx *gorm.DB) {
		if tx.Statement.Table == "recipe_tags" {
			_ = tx.AddError(errors.New("recipe_tags insert failed"))
		}
	})
	require.NoError(t, err)
}

func TestRecipeWrites_RollBackWhenTagInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	pepper := testhelpers.CreateIngredient(t, f.db, "Pepper", "g")
	lunch := testhelpers.CreateTag(t, f.db, "lunch")
	dinner := testhelpers.CreateTag(t, f.db, "dinner")

	recipe, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{lunch}, amount(salt, 5)))
	require.NoError(t, err)

	failTagInserts(t, f.db)

	t.Run("update keeps the old recipe", func(t *testing.T) {
		req := writeRequest("Spicy soup", []*models.Tag{dinner}, amount(pepper, 2))
		req.Image = ""
		_, err := f.recipes.UpdateRecipe(ctx, recipe, req)
		require.Error(t, err)

		reloaded, err := f.recipes.GetRecipe(ctx, recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Soup", reloaded.Name)
		require.Len(t, reloaded.Ingredients, 1)
		assert.Equal(t, salt.ID, reloaded.Ingredients[0].IngredientID)
		assert.Equal(t, 5, reloaded.Ingredients[0].Amount)
		require.Len(t, reloaded.Tags, 1)
		assert.Equal(t, lunch.ID, reloaded.Tags[0].TagID)
	})

	t.Run("create stores nothing", func(t *testing.T) {
		_, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Stew", []*models.Tag{dinner}, amount(pepper, 3)))
		require.Error(t, err)

		assert.EqualValues(t, 1, countRows(t, f, &models.Recipe{}))
		assert.EqualValues(t, 1, countRows(t, f, &models.RecipeIngredient{}))
		assert.EqualValues(t, 1, countRows(t, f, &models.RecipeTag{}))
	})
}

func TestDeleteRecipe_RemovesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	reader := testhelpers.CreateUser(t, f.db, "reader")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	recipe, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{tag}, amount(salt, 5)))
	require.NoError(t, err)
	require.NoError(t, f.lists.AddFavorite(ctx, reader.ID, recipe.ID))
	require.NoError(t, f.lists.AddToCart(ctx, reader.ID, recipe.ID))

	require.NoError(t, f.recipes.DeleteRecipe(ctx, recipe))

	_, err = f.recipes.GetRecipe(ctx, recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Zero(t, countRows(t, f, &models.Favorite{}))
	assert.Zero(t, countRows(t, f, &models.ShoppingList{}))
	assert.Zero(t, countRows(t, f, &models.RecipeIngredient{}))
	assert.EqualValues(t, 1, countRows(t, f, &models.Ingredient{}), "catalog entries survive")
}

func TestListRecipes_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testhelpers.CreateUser(t, f.db, "alice")
	bob := testhelpers.CreateUser(t, f.db, "bob")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	breakfast := testhelpers.CreateTag(t, f.db, "breakfast")
	dinner := testhelpers.CreateTag(t, f.db, "dinner")

	eggs := testhelpers.CreateRecipe(t, f.db, alice, testhelpers.RecipeFixture{Name: "Eggs", Tags: []*models.Tag{breakfast}, Amounts: map[*models.Ingredient]int{salt: 1}})
	stew := testhelpers.CreateRecipe(t, f.db, alice, testhelpers.RecipeFixture{Name: "Stew", Tags: []*models.Tag{dinner}, Amounts: map[*models.Ingredient]int{salt: 3}})
	testhelpers.CreateRecipe(t, f.db, bob, testhelpers.RecipeFixture{Name: "Toast", Tags: []*models.Tag{breakfast, dinner}})

	require.NoError(t, f.lists.AddFavorite(ctx, bob.ID, stew.ID))
	require.NoError(t, f.lists.AddToCart(ctx, bob.ID, eggs.ID))

	names := func(recipes []models.Recipe) []string {
		out := make([]string, len(recipes))
		for i, r := range recipes {
			out[i] = r.Name
		}
		return out
	}

	tests := []struct {
		name   string
		filter service.RecipeFilter
		viewer *uuid.UUID
		want   []string
	}{
		{"all", service.RecipeFilter{}, nil, []string{"Eggs", "Stew", "Toast"}},
		{"by tag", service.RecipeFilter{Tags: []string{"breakfast"}}, nil, []string{"Eggs", "Toast"}},
		{"any of tags", service.RecipeFilter{Tags: []string{"breakfast", "dinner"}}, nil, []string{"Eggs", "Stew", "Toast"}},
		{"by author", service.RecipeFilter{AuthorID: ptr(alice.ID)}, nil, []string{"Eggs", "Stew"}},
		{"favorited", service.RecipeFilter{IsFavorited: true}, ptr(bob.ID), []string{"Stew"}},
		{"in cart", service.RecipeFilter{IsInShoppingCart: true}, ptr(bob.ID), []string{"Eggs"}},
		{"anonymous ignores flags", service.RecipeFilter{IsFavorited: true}, nil, []string{"Eggs", "Stew", "Toast"}},
		{"author and tag", service.RecipeFilter{AuthorID: ptr(bob.ID), Tags: []string{"dinner"}}, nil, []string{"Toast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, total, err := f.recipes.ListRecipes(ctx, tt.filter, tt.viewer)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
			assert.ElementsMatch(t, tt.want, names(recipes))
		})
	}
}

func TestListRecipes_Pagination(t *testing.T) {
	f := newFixture(t)
	author := testhelpers.CreateUser(t, f.db, "chef")
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		testhelpers.CreateRecipe(t, f.db, author, testhelpers.RecipeFixture{Name: name})
	}

	page, total, err := f.recipes.ListRecipes(context.Background(), service.RecipeFilter{Pagination: service.Pagination{Page: 2, Limit: 2}}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	last, _, err := f.recipes.ListRecipes(context.Background(), service.RecipeFilter{Pagination: service.Pagination{Page: 3, Limit: 2}}, nil)
	require.NoError(t, err)
	assert.Len(t, last, 1)
}

func TestViewRecipe_Flags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	reader := testhelpers.CreateUser(t, f.db, "reader")
	salt := testhelpers.CreateIngredient(t, f.db, "Salt", "g")
	basil := testhelpers.CreateIngredient(t, f.db, "Basil", "leaf")
	tag := testhelpers.CreateTag(t, f.db, "lunch")

	created, err := f.recipes.CreateRecipe(ctx, author.ID, writeRequest("Soup", []*models.Tag{tag}, amount(salt, 5), amount(basil, 3)))
	require.NoError(t, err)
	require.NoError(t, f.lists.AddFavorite(ctx, reader.ID, created.ID))
	require.NoError(t, f.follows.Follow(ctx, reader.ID, author.ID))

	anon, err := f.recipes.ViewRecipe(ctx, created, nil)
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)
	assert.False(t, anon.IsInShoppingCart)
	assert.False(t, anon.Author.IsSubscribed)
	assert.Equal(t, "/media/"+created.Image, anon.Image)
	require.Len(t, anon.Ingredients, 2)
	assert.Equal(t, "Basil", anon.Ingredients[0].Name)
	assert.Equal(t, 3, anon.Ingredients[0].Amount)

	seen, err := f.recipes.ViewRecipe(ctx, created, ptr(reader.ID))
	require.NoError(t, err)
	assert.True(t, seen.IsFavorited)
	assert.False(t, seen.IsInShoppingCart)
	assert.True(t, seen.Author.IsSubscribed)
}
