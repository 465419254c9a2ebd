package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "apply or roll back the PostgreSQL schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "connection string; defaults to the DB_* configuration",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "migrations directory; defaults to MIGRATIONS_DIR",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply every pending migration",
				Action: withDB(up),
			},
			{
				Name:   "down",
				Usage:  "roll back the last applied migration",
				Action: withDB(down),
			},
			{
				Name:   "status",
				Usage:  "list migrations and whether they are applied",
				Action: withDB(status),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type action func(c *cli.Context, db *sql.DB, dir string) error

// withDB opens the database and ensures the bookkeeping table exists
func withDB(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		dsn, dir := c.String("dsn"), c.String("dir")
		if dsn == "" || dir == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = cfg.PostgresDSN()
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if _, err := db.Exec(createMigrationsTable); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}
		return fn(c, db, dir)
	}
}

func applied(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

// execInTx runs a migration script and its bookkeeping statement atomically
func execInTx(db *sql.DB, script, bookkeeping, name string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}
	if _, err := tx.Exec(bookkeeping, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record %s: %w", name, err)
	}
	return tx.Commit()
}

func up(c *cli.Context, db *sql.DB, dir string) error {
	files, err := database.MigrationFiles(dir)
	if err != nil {
		return err
	}
	done, err := applied(db)
	if err != nil {
		return err
	}

	pending := 0
	for _, name := range files {
		if done[name] {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		if err := execInTx(db, string(content), "INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			return err
		}
		pending++
		fmt.Fprintf(c.App.Writer, "applied %s\n", name)
	}
	if pending == 0 {
		fmt.Fprintln(c.App.Writer, "no pending migrations")
	}
	return nil
}

func down(c *cli.Context, db *sql.DB, dir string) error {
	var name string
	err := db.QueryRow("SELECT name FROM schema_migrations ORDER BY applied_at DESC, id DESC LIMIT 1").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("no migrations to roll back")
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	rollback := filepath.Join(dir, strings.TrimSuffix(name, ".sql")+"_rollback.sql")
	content, err := os.ReadFile(rollback)
	if err != nil {
		return fmt.Errorf("failed to read rollback file: %w", err)
	}
	if err := execInTx(db, string(content), "DELETE FROM schema_migrations WHERE name = $1", name); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "rolled back %s\n", name)
	return nil
}

func status(c *cli.Context, db *sql.DB, dir string) error {
	files, err := database.MigrationFiles(dir)
	if err != nil {
		return err
	}
	done, err := applied(db)
	if err != nil {
		return err
	}
	for _, name := range files {
		state := "pending"
		if done[name] {
			state = "applied"
		}
		fmt.Fprintf(c.App.Writer, "%-40s %s\n", name, state)
	}
	return nil
}
