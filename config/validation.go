package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirements lists the keys that must be non-empty per environment
var requirements = map[Environment][]string{
	Development: {"server_port", "db_driver"},
	Test:        {"server_port", "db_driver"},
	CI:          {"server_port", "db_driver", "jwt_secret"},
	Production:  {"server_port", "db_driver", "jwt_secret", "db_password"},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []string

	values := map[string]string{
		"server_port": cfg.ServerPort,
		"db_driver":   cfg.DBDriver,
		"jwt_secret":  cfg.JWTSecret,
		"db_password": cfg.DBPassword,
	}
	for _, key := range requirements[cfg.Environment] {
		if values[key] == "" {
			errs = append(errs, ValidationError{Field: key, Message: "is required"}.Error())
		}
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" || cfg.DBName == "" {
			errs = append(errs, ValidationError{Field: "db_host", Message: "host and name are required for postgres"}.Error())
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{Field: "sqlite_path", Message: "is required for sqlite"}.Error())
		}
	default:
		errs = append(errs, ValidationError{Field: "db_driver", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)}.Error())
	}

	switch cfg.StorageBackend {
	case "local":
		if cfg.MediaDir == "" {
			errs = append(errs, ValidationError{Field: "media_dir", Message: "is required for local storage"}.Error())
		}
	case "s3":
		if cfg.S3BucketName == "" {
			errs = append(errs, ValidationError{Field: "s3_bucket_name", Message: "is required for s3 storage"}.Error())
		}
	default:
		errs = append(errs, ValidationError{Field: "storage_backend", Message: fmt.Sprintf("unsupported backend %q", cfg.StorageBackend)}.Error())
	}

	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{Field: "token_ttl", Message: "must be positive"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
