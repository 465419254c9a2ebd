package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	reader := testhelpers.CreateUser(t, f.db, "reader")
	recipe := testhelpers.CreateRecipe(t, f.db, author, testhelpers.RecipeFixture{Name: "Soup"})

	require.NoError(t, f.lists.AddFavorite(ctx, reader.ID, recipe.ID))

	err := f.lists.AddFavorite(ctx, reader.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyExists)
	assert.EqualValues(t, 1, countRows(t, f, &models.Favorite{}))

	require.NoError(t, f.lists.RemoveFavorite(ctx, reader.ID, recipe.ID))
	assert.Zero(t, countRows(t, f, &models.Favorite{}))

	assert.NoError(t, f.lists.RemoveFavorite(ctx, reader.ID, recipe.ID), "removing an absent favorite is a no-op")
}

func TestShoppingCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, f.db, "chef")
	recipe := testhelpers.CreateRecipe(t, f.db, author, testhelpers.RecipeFixture{Name: "Soup"})

	require.NoError(t, f.lists.AddToCart(ctx, author.ID, recipe.ID))
	assert.ErrorIs(t, f.lists.AddToCart(ctx, author.ID, recipe.ID), service.ErrAlreadyExists)

	require.NoError(t, f.lists.RemoveFromCart(ctx, author.ID, recipe.ID))
	assert.NoError(t, f.lists.RemoveFromCart(ctx, author.ID, recipe.ID))
	assert.Zero(t, countRows(t, f, &models.ShoppingList{}))
}

func TestAddFavorite_UnknownRecipe(t *testing.T) {
	f := newFixture(t)
	reader := testhelpers.CreateUser(t, f.db, "reader")

	err := f.lists.AddFavorite(context.Background(), reader.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
