package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OverviewCacheTTL       time.Duration
	ApprovalCountries      []string
	StalenessWindow        time.Duration
	TestDateValidity       time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Rules maps the configured evaluation knobs into an engine config.
func (c Config) Rules() rules.Config {
	return rules.Config{
		ApprovalCountries: c.ApprovalCountries,
		StalenessWindow:   c.StalenessWindow,
		TestDateValidity:  c.TestDateValidity,
	}
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("UNIPATH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "UniPath API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("cloudinary.folder", "unipath/threads")
	v.SetDefault("overview.cache_ttl", "5m")
	v.SetDefault("rules.approval_countries", "")
	v.SetDefault("rules.staleness_window", "")
	v.SetDefault("rules.test_date_validity", "")

	ttlString := v.GetString("overview.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid overview cache ttl: %w", err)
	}

	staleness, err := optionalDuration(v.GetString("rules.staleness_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid staleness window: %w", err)
	}

	testValidity, err := optionalDuration(v.GetString("rules.test_date_validity"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid test date validity: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OverviewCacheTTL:       ttl,
		ApprovalCountries:      splitList(v.GetString("rules.approval_countries")),
		StalenessWindow:        staleness,
		TestDateValidity:       testValidity,
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	return cfg, nil
}

func optionalDuration(raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
