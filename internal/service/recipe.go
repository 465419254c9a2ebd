package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeFilter narrows a recipe listing. The favorite and cart flags only
// apply to an authenticated viewer.
type RecipeFilter struct {
	Tags             []string
	AuthorID         *uuid.UUID
	IsFavorited      bool
	IsInShoppingCart bool
	Pagination
}

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
	log    *zap.Logger
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images ImageStore, log *zap.Logger) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
		log:    log.Named("recipes"),
	}
}

// resolved is a validated write request
type resolved struct {
	amounts []models.RecipeIngredient
	tagIDs  []uuid.UUID
}

// resolve validates the ingredient and tag references of req against the
// catalog. An ingredient listed twice is rejected; a tag listed twice is
// collapsed.
func (s *RecipeService) resolve(ctx context.Context, req *types.RecipeWriteRequest) (*resolved, error) {
	if req.Name == "" {
		return nil, invalid("name", "name is required")
	}
	if req.Text == "" {
		return nil, invalid("text", "text is required")
	}
	if req.CookingTime < 0 {
		return nil, invalid("cooking_time", "cooking time must not be negative")
	}
	if len(req.Ingredients) == 0 {
		return nil, invalid("ingredients", "at least one ingredient is required")
	}
	if len(req.Tags) == 0 {
		return nil, invalid("tags", "at least one tag is required")
	}

	db := s.db.WithContext(ctx)

	ingredientIDs := make([]uuid.UUID, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ingredientIDs = append(ingredientIDs, item.ID)
	}
	var ingredients []models.Ingredient
	if err := db.Where("id IN ?", ingredientIDs).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID] = ing
	}

	out := &resolved{}
	seen := make(map[uuid.UUID]bool, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ing, ok := byID[item.ID]
		if !ok {
			return nil, fmt.Errorf("ingredient %s: %w", item.ID, ErrNotFound)
		}
		if seen[item.ID] {
			return nil, invalid("ingredients", "specify ingredient %s once with a combined amount", ing.Name)
		}
		if item.Amount < 0 {
			return nil, invalid("ingredients", "amount of %s must not be negative", ing.Name)
		}
		seen[item.ID] = true
		out.amounts = append(out.amounts, models.RecipeIngredient{IngredientID: item.ID, Amount: item.Amount})
	}

	tagSeen := make(map[uuid.UUID]bool, len(req.Tags))
	for _, id := range req.Tags {
		if !tagSeen[id] {
			tagSeen[id] = true
			out.tagIDs = append(out.tagIDs, id)
		}
	}
	var found int64
	if err := db.Model(&models.Tag{}).Where("id IN ?", out.tagIDs).Count(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if int(found) != len(out.tagIDs) {
		var existing []uuid.UUID
		if err := db.Model(&models.Tag{}).Where("id IN ?", out.tagIDs).Pluck("id", &existing).Error; err != nil {
			return nil, fmt.Errorf("failed to load tags: %w", err)
		}
		known := make(map[uuid.UUID]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}
		for _, id := range out.tagIDs {
			if !known[id] {
				return nil, fmt.Errorf("tag %s: %w", id, ErrNotFound)
			}
		}
	}

	return out, nil
}

// storeImage decodes and saves an encoded image, returning its reference
func (s *RecipeService) storeImage(ctx context.Context, encoded string) (string, error) {
	data, contentType, err := DecodeImage(encoded)
	if err != nil {
		return "", err
	}
	return s.images.Save(ctx, data, contentType)
}

func (s *RecipeService) discardImage(ctx context.Context, ref string) {
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.Warn("failed to delete image", zap.String("ref", ref), zap.Error(err))
	}
}

// writeAssociations bulk inserts the ingredient and tag rows of a recipe
func writeAssociations(tx *gorm.DB, recipeID uuid.UUID, r *resolved) error {
	for i := range r.amounts {
		r.amounts[i].RecipeID = recipeID
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(r.amounts, 100).Error; err != nil {
		return fmt.Errorf("failed to store recipe ingredients: %w", database.Classify(err))
	}

	tags := make([]models.RecipeTag, len(r.tagIDs))
	for i, id := range r.tagIDs {
		tags[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(tags, 100).Error; err != nil {
		return fmt.Errorf("failed to store recipe tags: %w", database.Classify(err))
	}
	return nil
}

// CreateRecipe persists a recipe together with its ingredients and tags in
// one transaction
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uuid.UUID, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	r, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Image == "" {
		return nil, invalid("image", "image is required")
	}
	imageRef, err := s.storeImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       imageRef,
		CookingTime: req.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", database.Classify(err))
		}
		return writeAssociations(tx, recipe.ID, r)
	})
	if err != nil {
		s.discardImage(ctx, imageRef)
		return nil, err
	}

	s.log.Info("recipe created", zap.String("recipe_id", recipe.ID.String()), zap.String("author_id", authorID.String()))
	return s.GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe replaces the fields and the whole ingredient and tag set of
// recipe. Concurrent updates of the same recipe are last-writer-wins.
func (s *RecipeService) UpdateRecipe(ctx context.Context, recipe *models.Recipe, req *types.RecipeWriteRequest) (*models.Recipe, error) {
	r, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	imageRef := oldImage
	if req.Image != "" {
		if imageRef, err = s.storeImage(ctx, req.Image); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]interface{}{
			"name":         req.Name,
			"text":         req.Text,
			"image":        imageRef,
			"cooking_time": req.CookingTime,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", database.Classify(err))
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		return writeAssociations(tx, recipe.ID, r)
	})
	if err != nil {
		if imageRef != oldImage {
			s.discardImage(ctx, imageRef)
		}
		return nil, err
	}
	if imageRef != oldImage {
		s.discardImage(ctx, oldImage)
	}

	return s.GetRecipe(ctx, recipe.ID)
}

// DeleteRecipe removes a recipe and every row that references it
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipe *models.Recipe) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{}, &models.ShoppingList{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete recipe references: %w", err)
			}
		}
		res := tx.Delete(&models.Recipe{}, "id = ?", recipe.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete recipe: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("recipe %s: %w", recipe.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.discardImage(ctx, recipe.Image)
	return nil
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Ingredients.Ingredient").Preload("Tags.Tag")
}

// GetRecipe retrieves a recipe by ID with its author, ingredients and tags
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Scopes(preloadRecipe).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RecipeService) filterScope(f RecipeFilter, viewer *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.Tags) > 0 {
			tagged := s.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.Tags)
			db = db.Where("recipes.id IN (?)", tagged)
		}
		if f.AuthorID != nil {
			db = db.Where("recipes.author_id = ?", *f.AuthorID)
		}
		if viewer != nil && f.IsFavorited {
			favorited := s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewer)
			db = db.Where("recipes.id IN (?)", favorited)
		}
		if viewer != nil && f.IsInShoppingCart {
			inCart := s.db.Model(&models.ShoppingList{}).Select("recipe_id").Where("user_id = ?", *viewer)
			db = db.Where("recipes.id IN (?)", inCart)
		}
		return db
	}
}

// ListRecipes returns one page of recipes matching f, newest first, and the
// total number of matches
func (s *RecipeService) ListRecipes(ctx context.Context, f RecipeFilter, viewer *uuid.UUID) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Recipe{}).Scopes(s.filterScope(f, viewer)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := db.Model(&models.Recipe{}).
		Scopes(s.filterScope(f, viewer), preloadRecipe, f.Pagination.scope).
		Order("recipes.created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// ViewRecipe renders the read shape of recipe for viewer
func (s *RecipeService) ViewRecipe(ctx context.Context, recipe *models.Recipe, viewer *uuid.UUID) (types.RecipeResponse, error) {
	views, err := s.ViewRecipes(ctx, []models.Recipe{*recipe}, viewer)
	if err != nil {
		return types.RecipeResponse{}, err
	}
	return views[0], nil
}

// ViewRecipes renders recipes for viewer. The favorite, cart and
// subscription flags are each loaded with one query for the whole slice and
// are all false for an anonymous viewer.
func (s *RecipeService) ViewRecipes(ctx context.Context, recipes []models.Recipe, viewer *uuid.UUID) ([]types.RecipeResponse, error) {
	ids := make([]uuid.UUID, len(recipes))
	authors := make([]uuid.UUID, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authors[i] = r.AuthorID
	}

	favorited, err := recipesMarkedBy(ctx, s.db, &models.Favorite{}, viewer, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := recipesMarkedBy(ctx, s.db, &models.ShoppingList{}, viewer, ids)
	if err != nil {
		return nil, err
	}
	followed, err := followedAmong(ctx, s.db, viewer, authors)
	if err != nil {
		return nil, err
	}

	views := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		view := types.RecipeResponse{
			ID:               r.ID,
			Author:           userView(&r.Author, followed[r.AuthorID]),
			Tags:             make([]types.TagResponse, 0, len(r.Tags)),
			Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.Ingredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            s.images.URL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		for _, rt := range r.Tags {
			view.Tags = append(view.Tags, tagView(&rt.Tag))
		}
		for _, ri := range r.Ingredients {
			view.Ingredients = append(view.Ingredients, types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			})
		}
		sort.Slice(view.Tags, func(a, b int) bool { return view.Tags[a].Name < view.Tags[b].Name })
		sort.Slice(view.Ingredients, func(a, b int) bool { return view.Ingredients[a].Name < view.Ingredients[b].Name })
		views[i] = view
	}
	return views, nil
}

// ShortRecipe renders the compact shape of recipe
func (s *RecipeService) ShortRecipe(recipe *models.Recipe) types.ShortRecipeResponse {
	return types.ShortRecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       s.images.URL(recipe.Image),
		CookingTime: recipe.CookingTime,
	}
}

// recipesMarkedBy reports which of ids the viewer has a row for in the
// favorites or shopping list table of model
func recipesMarkedBy(ctx context.Context, db *gorm.DB, model interface{}, viewer *uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool)
	if viewer == nil || len(ids) == 0 {
		return set, nil
	}

	var marked []uuid.UUID
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", *viewer, ids).
		Pluck("recipe_id", &marked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe flags: %w", err)
	}
	for _, id := range marked {
		set[id] = true
	}
	return set, nil
}
