package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/servicehub/servicehub/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Ensure environment does not interfere
	_ = os.Unsetenv("HUB_ADDR")
	_ = os.Unsetenv("HUB_JWT_SECRET")
	_ = os.Unsetenv("HUB_DATABASE_PATH")
	_ = os.Unsetenv("HUB_UPLOAD_DIR")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.DatabasePath != "servicehub.db" {
		t.Fatalf("unexpected DatabasePath: got %q want %q", cfg.DatabasePath, "servicehub.db")
	}
	if cfg.UploadDir != "uploads" {
		t.Fatalf("unexpected UploadDir: got %q want %q", cfg.UploadDir, "uploads")
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 15*time.Second)
	}
	if cfg.TokenDuration != 1*time.Hour {
		t.Fatalf("unexpected TokenDuration: got %v want %v", cfg.TokenDuration, 1*time.Hour)
	}
	if cfg.RateLimit.PerMinute != 10 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HUB_ADDR", ":9999")
	t.Setenv("HUB_DATABASE_PATH", "override.db")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Addr != ":9999" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":9999")
	}
	if cfg.DatabasePath != "override.db" {
		t.Fatalf("unexpected DatabasePath: got %q want %q", cfg.DatabasePath, "override.db")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	f.Close()

	content := []byte("addr: \":9090\"\njwt_secret: \"filekey\"\ndatabase_path: \"test.db\"\nupload_dir: \"blobs\"\nrate_limit:\n  per_minute: 3\n  burst: 2\n")
	if err := os.WriteFile(f.Name(), content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":9090")
	}
	if cfg.JWTSecret != "filekey" {
		t.Fatalf("unexpected JWTSecret: got %q want %q", cfg.JWTSecret, "filekey")
	}
	if cfg.DatabasePath != "test.db" {
		t.Fatalf("unexpected DatabasePath: got %q want %q", cfg.DatabasePath, "test.db")
	}
	if cfg.UploadDir != "blobs" {
		t.Fatalf("unexpected UploadDir: got %q want %q", cfg.UploadDir, "blobs")
	}
	if cfg.RateLimit.PerMinute != 3 || cfg.RateLimit.Burst != 2 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	f, err := os.CreateTemp("", "bad-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	f.Close()

	if err := os.WriteFile(f.Name(), []byte("::: not yaml :::"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("HUB_ENV", "production")

	cfg := &config.Config{
		Addr:         ":8080",
		JWTSecret:    "supersecretkey",
		DatabasePath: "servicehub.db",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("HUB_ENV", "development")

	cfg := &config.Config{
		Addr:         ":8080",
		JWTSecret:    "supersecretkey",
		DatabasePath: "servicehub.db",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_FillsRateLimitDefaults(t *testing.T) {
	t.Setenv("HUB_ENV", "development")

	cfg := &config.Config{
		Addr:         ":8080",
		JWTSecret:    "strongsecret",
		DatabasePath: "servicehub.db",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}

	if cfg.RateLimit.PerMinute <= 0 || cfg.RateLimit.Burst <= 0 {
		t.Fatalf("expected rate limit defaults to be filled, got %+v", cfg.RateLimit)
	}
}
