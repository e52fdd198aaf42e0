package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	applog "storefront/internal/log"
)

type Config struct {
	Port          string `yaml:"port"`
	DBDriver      string `yaml:"db_driver"` // sqlite | postgres
	DBDSN         string `yaml:"db_dsn"`
	MediaDir      string `yaml:"media_dir"`
	TemplatesDir  string `yaml:"templates_dir"`
	LogFile       string `yaml:"log_file"`
	RedisURL      string `yaml:"redis_url"`
	TraceExporter string `yaml:"trace_exporter"` // "" | stdout | otlp
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

func defaults() Config {
	return Config{
		Port:         "8081",
		DBDriver:     "sqlite",
		DBDSN:        "storefront.db", // sqlite file in project root
		MediaDir:     "./web/media",
		TemplatesDir: "./web/templates",
		LogFile:      "./storefront.log",
	}
}

// Load builds the config from defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables (highest precedence).
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.TraceExporter {
	case "", "stdout", "otlp":
	default:
		return Config{}, fmt.Errorf("config: unsupported TRACE_EXPORTER %q", cfg.TraceExporter)
	}

	applog.Event(applog.LevelInfo, "config.loaded", nil, map[string]any{
		"port": cfg.Port, "db_driver": cfg.DBDriver, "media_dir": cfg.MediaDir,
		"log_file": cfg.LogFile, "redis": cfg.RedisURL != "", "trace_exporter": cfg.TraceExporter,
	})
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Port, "PORT")
	set(&cfg.DBDriver, "DB_DRIVER")
	set(&cfg.DBDSN, "DB_DSN")
	set(&cfg.MediaDir, "MEDIA_DIR")
	set(&cfg.TemplatesDir, "TEMPLATES_DIR")
	set(&cfg.LogFile, "LOG_FILE")
	set(&cfg.RedisURL, "REDIS_URL")
	set(&cfg.TraceExporter, "TRACE_EXPORTER")
	set(&cfg.OTLPEndpoint, "OTLP_ENDPOINT")
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		cfg.SecureCookies = strings.EqualFold(v, "true") || v == "1"
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.TraceExporter))
}
