// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and passed into the components that
// need it; nothing reads the environment after Load.
type Config struct {
	// DBPath is the SQLite database file. Defaults to wardrobe.db.
	DBPath string

	// GeminiAPIKey authenticates vision model calls. Required.
	GeminiAPIKey string
	// GeminiModel overrides the default vision model.
	GeminiModel string
	// GeminiTimeout is the per-call timeout for vision requests.
	GeminiTimeout time.Duration

	// Cloudinary credentials for the photo blob store. Required.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// NATSURL enables the broker-backed dispatcher when set; otherwise the
	// in-process worker is used.
	NATSURL string
}

const defaultGeminiTimeout = 60 * time.Second

// Load reads configuration from the environment, honoring a .env file in
// the working directory if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:              envOr("WARDROBE_DB_PATH", "wardrobe.db"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		GeminiTimeout:       defaultGeminiTimeout,
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		NATSURL:             os.Getenv("NATS_URL"),
	}

	if v := os.Getenv("GEMINI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GEMINI_TIMEOUT: %w", err)
		}
		cfg.GeminiTimeout = d
	}

	var missing []string
	for _, required := range []struct {
		name  string
		value string
	}{
		{"GEMINI_API_KEY", cfg.GeminiAPIKey},
		{"CLOUDINARY_CLOUD_NAME", cfg.CloudinaryCloudName},
		{"CLOUDINARY_API_KEY", cfg.CloudinaryAPIKey},
		{"CLOUDINARY_API_SECRET", cfg.CloudinaryAPISecret},
	} {
		if required.value == "" {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// DBPath resolves just the database location, for tools that only touch
// local storage and need none of the API credentials.
func DBPath() string {
	_ = godotenv.Load()
	return envOr("WARDROBE_DB_PATH", "wardrobe.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
