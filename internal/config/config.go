package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	JWTSecret   string

	// Entry store
	StoreDriver   string // "mongo" or "memory"
	MongoURL      string
	MongoDatabase string

	// Filesystem
	StorageRoot string
	StagingDir  string

	// Trash lifecycle
	TrashRetention time.Duration
	ReaperInterval time.Duration

	// Debug enables debug-level logging
	Debug bool
	// LogDir, when set, mirrors logs into timestamped files there.
	LogDir string
}

// Overrides is the optional YAML tuning file, pointed at by
// FILEVAULT_CONFIG. Only the trash lifecycle is tunable there; the
// environment stays the source of truth for everything else.
type Overrides struct {
	TrashRetention string `yaml:"trash_retention"`
	ReaperInterval string `yaml:"reaper_interval"`
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURL:      getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "filevault"),

		StorageRoot: getEnv("STORAGE_ROOT", "./uploads"),
		StagingDir:  getEnv("STAGING_DIR", os.TempDir()),

		TrashRetention: DefaultTrashRetention,
		ReaperInterval: DefaultReaperInterval,

		Debug:  getEnv("DEBUG", defaultDebug(env)) == "true",
		LogDir: getEnv("LOG_DIR", ""),
	}

	if d, err := getEnvDuration("TRASH_RETENTION"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.TrashRetention = d
	}
	if d, err := getEnvDuration("REAPER_INTERVAL"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.ReaperInterval = d
	}

	if path := os.Getenv("FILEVAULT_CONFIG"); path != "" {
		if err := cfg.applyOverrides(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if o.TrashRetention != "" {
		d, err := time.ParseDuration(o.TrashRetention)
		if err != nil {
			return fmt.Errorf("invalid trash_retention in %s: %w", path, err)
		}
		c.TrashRetention = d
	}
	if o.ReaperInterval != "" {
		d, err := time.ParseDuration(o.ReaperInterval)
		if err != nil {
			return fmt.Errorf("invalid reaper_interval in %s: %w", path, err)
		}
		c.ReaperInterval = d
	}

	return nil
}

func defaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
