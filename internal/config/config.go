package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr               string        `yaml:"addr"`
	JWTSecret          string        `yaml:"jwt_secret"`
	APITimeout         time.Duration `yaml:"timeout"`
	DatabasePath       string        `yaml:"database_path"`
	TokenDuration      time.Duration `yaml:"token_duration"`
	ResetTokenDuration time.Duration `yaml:"reset_token_duration"`
	UploadDir          string        `yaml:"upload_dir"`
	RateLimit          RateLimit     `yaml:"rate_limit"`
}

// RateLimit bounds unauthenticated auth traffic per client IP.
type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour
	resetDuration := 1 * time.Hour

	cfg := &Config{
		Addr:               getEnv("HUB_ADDR", ":8080"),
		JWTSecret:          getEnv("HUB_JWT_SECRET", "supersecretkey"),
		APITimeout:         apiTimeout,
		DatabasePath:       getEnv("HUB_DATABASE_PATH", "servicehub.db"),
		TokenDuration:      tokenDuration,
		ResetTokenDuration: resetDuration,
		UploadDir:          getEnv("HUB_UPLOAD_DIR", "uploads"),
		RateLimit:          RateLimit{PerMinute: 10, Burst: 5},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects values that are unsafe to run with outside development
// and fills rate-limit defaults.
func (c *Config) Validate() error {
	if os.Getenv("HUB_ENV") != "development" && c.JWTSecret == "supersecretkey" {
		return fmt.Errorf("jwt_secret must be set outside development")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
