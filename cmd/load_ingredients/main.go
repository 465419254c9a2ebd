package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

type ingredientRecord struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

type tagRecord struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,hexcolor,len=7"`
	Slug  string `json:"slug" validate:"required,max=200"`
}

func main() {
	fileFlag := &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "path to a JSON array of records",
		Required: true,
	}

	app := &cli.App{
		Name:  "load_ingredients",
		Usage: "import the ingredient and tag catalogs",
		Commands: []*cli.Command{
			{
				Name:   "ingredients",
				Usage:  "import ingredients, skipping existing name and unit pairs",
				Flags:  []cli.Flag{fileFlag},
				Action: withCatalog(loadIngredients),
			},
			{
				Name:   "tags",
				Usage:  "import tags, skipping ones that already exist",
				Flags:  []cli.Flag{fileFlag},
				Action: withCatalog(loadTags),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type loader func(ctx context.Context, c *cli.Context, catalog *service.CatalogService, log *zap.Logger) error

func withCatalog(fn loader) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Development: cfg.Environment == config.Development})
		if err != nil {
			return err
		}
		defer zl.Sync()

		db, err := database.New(cfg, zl)
		if err != nil {
			return err
		}
		if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
			return err
		}
		return fn(c.Context, c, service.NewCatalogService(db), zl)
	}
}

func readRecords[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	validate := validator.New()
	for i := range records {
		if err := validate.Struct(records[i]); err != nil {
			return nil, fmt.Errorf("record %d in %s: %w", i, path, err)
		}
	}
	return records, nil
}

func loadIngredients(ctx context.Context, c *cli.Context, catalog *service.CatalogService, log *zap.Logger) error {
	records, err := readRecords[ingredientRecord](c.String("file"))
	if err != nil {
		return err
	}
	items := make([]models.Ingredient, len(records))
	for i, r := range records {
		items[i] = models.Ingredient{Name: r.Name, MeasurementUnit: r.MeasurementUnit}
	}

	n, err := catalog.ImportIngredients(ctx, items)
	if err != nil {
		return err
	}
	log.Info("ingredients imported", zap.Int("inserted", n), zap.Int("read", len(records)))
	return nil
}

func loadTags(ctx context.Context, c *cli.Context, catalog *service.CatalogService, log *zap.Logger) error {
	records, err := readRecords[tagRecord](c.String("file"))
	if err != nil {
		return err
	}
	items := make([]models.Tag, len(records))
	for i, r := range records {
		items[i] = models.Tag{Name: r.Name, Color: r.Color, Slug: r.Slug}
	}

	n, err := catalog.ImportTags(ctx, items)
	if err != nil {
		return err
	}
	log.Info("tags imported", zap.Int("inserted", n), zap.Int("read", len(records)))
	return nil
}
