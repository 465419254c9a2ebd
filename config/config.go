package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment `mapstructure:"-"`

	// Server configuration
	ServerHost      string        `mapstructure:"server_host"`
	ServerPort      string        `mapstructure:"server_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// Database configuration
	DBDriver      string `mapstructure:"db_driver"`
	DBHost        string `mapstructure:"db_host"`
	DBPort        string `mapstructure:"db_port"`
	DBUser        string `mapstructure:"db_user"`
	DBPassword    string `mapstructure:"db_password"`
	DBName        string `mapstructure:"db_name"`
	DBSSLMode     string `mapstructure:"db_ssl_mode"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MigrationsDir string `mapstructure:"migrations_dir"`

	// Redis configuration. Empty RedisURL and RedisHost disable Redis.
	RedisURL      string `mapstructure:"redis_url"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Auth configuration
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RecipeRateLimit int           `mapstructure:"recipe_rate_limit"`

	// Image storage
	StorageBackend string `mapstructure:"storage_backend"`
	MediaDir       string `mapstructure:"media_dir"`
	MediaURL       string `mapstructure:"media_url"`
	S3BucketName   string `mapstructure:"s3_bucket_name"`
	AWSRegion      string `mapstructure:"aws_region"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// secretKeys are read from SECRETS_DIR when present and override the environment.
var secretKeys = []string{
	"db_user",
	"db_password",
	"jwt_secret",
	"redis_password",
	"redis_url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "foodgram")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "foodgram.db")
	v.SetDefault("migrations_dir", "migrations")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("recipe_rate_limit", 30)

	v.SetDefault("storage_backend", "local")
	v.SetDefault("media_dir", "media")
	v.SetDefault("media_url", "/media")
	v.SetDefault("s3_bucket_name", "foodgram-recipe-images")
	v.SetDefault("aws_region", "us-east-1")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// LoadConfig creates a new Config from defaults, environment variables and secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	switch env {
	case CI:
		// CI passes everything through the environment
	case Development, Test, Production:
		if err := loadSecrets(v, env == Production); err != nil {
			return nil, fmt.Errorf("failed to load %s secrets: %w", env, err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Environment = env

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadSecrets overlays Docker secrets onto v. In production a missing
// secrets directory is an error; elsewhere it is skipped.
func loadSecrets(v *viper.Viper, strict bool) error {
	dir := secretsDir()
	if _, err := os.Stat(dir); err != nil {
		if strict {
			return fmt.Errorf("secrets directory %s: %w", dir, err)
		}
		return nil
	}

	for _, name := range secretKeys {
		if value := readSecret(name); value != "" {
			v.Set(name, value)
		}
	}
	return nil
}

func secretsDir() string {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return dir
	}
	return "/run/secrets"
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	data, err := os.ReadFile(filepath.Join(secretsDir(), name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// PostgresDSN builds a libpq keyword/value connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// RedisEnabled reports whether a Redis endpoint is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}
