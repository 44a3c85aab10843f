package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3001
	defaultEnv        = "development"
)

// AppConfig holds runtime startup configuration, loaded from an optional
// YAML file and overridden by process environment.
type AppConfig struct {
	Port        int    `yaml:"port"`
	Env         string `yaml:"env"` // "development" | "production"
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	JWTSecret   string `yaml:"jwt_secret"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	GenAI   GenAIConfig   `yaml:"genai"`
	Storage StorageConfig `yaml:"storage"`

	// ContentSniffing toggles magic-byte validation of uploads.
	ContentSniffing bool `yaml:"content_sniffing"`
}

// GenAIConfig configures the generative model API client.
type GenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"` // empty = provider default
}

// StorageConfig configures the S3-compatible evidence blob store.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads the optional YAML config file and applies environment
// overrides. A missing file is not an error; the environment alone is a
// complete configuration surface.
func Load(configPath string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	applyEnv(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required (DATABASE_URL)")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (JWT_SECRET)")
	}

	return &cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:            defaultPort,
		Env:             defaultEnv,
		RedisURL:        "redis://localhost:6379/0",
		ContentSniffing: true,
	}
}

func applyEnv(cfg *AppConfig) {
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getenv("ENV", "NODE_ENV"); v != "" {
		cfg.Env = v
	}
	if v := getenv("DATABASE_URL", "DB_DSN"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := getenv("JWT_SECRET", "SUPABASE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := getenv("GOOGLE_AI_API_KEY", "GENAI_API_KEY"); v != "" {
		cfg.GenAI.APIKey = v
	}
	if v := getenv("GENAI_ENDPOINT"); v != "" {
		cfg.GenAI.Endpoint = v
	}
	if v := getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := getenv("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := getenv("STORAGE_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := getenv("STORAGE_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := getenv("CONTENT_SNIFFING"); v != "" {
		cfg.ContentSniffing = v != "0" && !strings.EqualFold(v, "false") && !strings.EqualFold(v, "off")
	}
}

func getenv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
