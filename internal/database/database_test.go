package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pageza/foodgram/backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(SQLiteDSN(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, "", zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGormLoggerWritesToZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gl := GormLogger(zap.New(core), logger.Warn)

	gl.Error(context.Background(), "query failed: %s", "boom")
	gl.Info(context.Background(), "below the configured level")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Contains(t, entries[0].Message, "query failed: boom")
}

func TestRunMigrationsSQLite(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"users", "follows", "tags", "ingredients", "recipes", "recipe_ingredients", "recipe_tags", "favorites", "shopping_lists", "revoked_tokens"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestClassifyUniqueViolation(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Email: "a@example.com", Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	err := db.Create(&models.User{Email: "a@example.com", Username: "alice2", PasswordHash: "x"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsCheckViolation(err))
	assert.ErrorIs(t, Classify(err), ErrUniqueViolation)
}

func TestClassifyCheckViolation(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Email: "a@example.com", Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	err := db.Create(&models.Follow{FollowerID: user.ID, FollowingID: user.ID}).Error
	require.Error(t, err)
	assert.True(t, IsCheckViolation(err))
}

func TestClassifyForeignKeyViolation(t *testing.T) {
	db := openTestDB(t)

	err := db.Create(&models.Favorite{UserID: uuid.New(), RecipeID: uuid.New()}).Error
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	other := errors.New("boom")
	assert.Equal(t, other, Classify(other))
	assert.Nil(t, Classify(nil))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
}

func TestMigrationFilesSkipsRollbacks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_lists.sql", "0001_init.sql", "0001_init_rollback.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}

	files, err := MigrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_lists.sql"}, files)
}

func TestMigrationFilesRepository(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}
