package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
)

func setRequiredEnv() {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long-for-tests")
	os.Setenv("JWT_ISSUER", "https://localhost:7001")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("SEED_ADMIN_PASSWORD", "123456")
	os.Setenv("SEED_USER_PASSWORD", "123456")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"TokenLifetime", cfg.Auth.TokenLifetime, 7 * 24 * time.Hour},
		{"StoreTimeout", cfg.Auth.StoreTimeout, 5 * time.Second},
		{"LockoutDuration", cfg.Lockout.Duration, 24 * time.Hour},
		{"AdminLockDuration", cfg.Lockout.AdminLockDuration, 5 * 24 * time.Hour},
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Lockout.MaxFailedAttempts != 3 {
		t.Errorf("MaxFailedAttempts: got %d, want 3", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.SuperAdminUserName != "admin@example.com" {
		t.Errorf("SuperAdminUserName: got %q", cfg.Lockout.SuperAdminUserName)
	}
	if !cfg.Seed.Enabled {
		t.Error("Seed.Enabled: got false, want true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv()
	os.Setenv("JWT_EXPIRES_IN_DAYS", "2")
	os.Setenv("LOCKOUT_MAX_FAILED_ATTEMPTS", "5")
	os.Setenv("SUPER_ADMIN_USERNAME", "Root@Example.com")
	os.Setenv("ALLOWED_ORIGINS", "https://console.example.com, https://admin.example.com")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.TokenLifetime != 48*time.Hour {
		t.Errorf("TokenLifetime: got %v, want 48h", cfg.Auth.TokenLifetime)
	}
	if cfg.Lockout.MaxFailedAttempts != 5 {
		t.Errorf("MaxFailedAttempts: got %d, want 5", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.SuperAdminUserName != "root@example.com" {
		t.Errorf("SuperAdminUserName should be lower-cased, got %q", cfg.Lockout.SuperAdminUserName)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("AllowedOrigins: got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		apply func()
	}{
		{"missing secret", func() { os.Unsetenv("JWT_SECRET") }},
		{"short secret", func() { os.Setenv("JWT_SECRET", "too-short") }},
		{"repeated secret", func() { os.Setenv("JWT_SECRET", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") }},
		{"missing issuer", func() { os.Unsetenv("JWT_ISSUER") }},
		{"invalid lifetime", func() { os.Setenv("JWT_EXPIRES_IN_DAYS", "seven") }},
		{"zero lifetime", func() { os.Setenv("JWT_EXPIRES_IN_DAYS", "0") }},
		{"missing db password", func() { os.Unsetenv("DB_PASSWORD") }},
		{"zero threshold", func() { os.Setenv("LOCKOUT_MAX_FAILED_ATTEMPTS", "0") }},
		{"seed without passwords", func() { os.Unsetenv("SEED_ADMIN_PASSWORD") }},
		{"email without region", func() { os.Setenv("EMAIL_FROM_ADDRESS", "noreply@example.com") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv()
			defer os.Clearenv()
			tt.apply()

			_, err := Load()
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("Load() = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoad_SeedDisabledNeedsNoPasswords(t *testing.T) {
	setRequiredEnv()
	os.Unsetenv("SEED_ADMIN_PASSWORD")
	os.Unsetenv("SEED_USER_PASSWORD")
	os.Setenv("SEED_DATA", "false")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Seed.Enabled {
		t.Error("Seed.Enabled: got true, want false")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}

	want := "host=db port=5433 user=u password=p dbname=n sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
