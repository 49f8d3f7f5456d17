package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	Seed     SeedConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret            string
	JWTIssuer            string
	TokenLifetime        time.Duration
	StoreTimeout         time.Duration
	BcryptCost           int
	LoginRequestsPerMin  int
	FailureDelayBaseMs   int
	FailureDelayRandomMs int
}

type LockoutConfig struct {
	MaxFailedAttempts  int
	Duration           time.Duration
	AdminLockDuration  time.Duration
	SuperAdminUserName string
	SweepInterval      time.Duration
}

// SeedConfig controls the initial roles and accounts created on an empty database
type SeedConfig struct {
	Enabled       bool
	AdminPassword string
	UserPassword  string
}

// EmailConfig configures lockout notifications; an empty FromAddress disables them
type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", models.ErrConfiguration)
	}

	jwtIssuer := getEnv("JWT_ISSUER", "")
	if jwtIssuer == "" {
		return nil, fmt.Errorf("%w: JWT_ISSUER is required", models.ErrConfiguration)
	}

	lifetimeDays, err := getEnvAsPositiveInt("JWT_EXPIRES_IN_DAYS", 7)
	if err != nil {
		return nil, err
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "usermanager"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			JWTIssuer:            jwtIssuer,
			TokenLifetime:        time.Duration(lifetimeDays) * 24 * time.Hour,
			StoreTimeout:         getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
			BcryptCost:           getEnvAsInt("BCRYPT_COST", 12),
			LoginRequestsPerMin:  getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),
			FailureDelayBaseMs:   getEnvAsInt("AUTH_FAILURE_DELAY_BASE_MS", 100),
			FailureDelayRandomMs: getEnvAsInt("AUTH_FAILURE_DELAY_RANDOM_MS", 50),
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts:  getEnvAsInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 3),
			Duration:           getEnvAsDuration("LOCKOUT_DURATION", 24*time.Hour),
			AdminLockDuration:  getEnvAsDuration("ADMIN_LOCK_DURATION", 5*24*time.Hour),
			SuperAdminUserName: strings.ToLower(getEnv("SUPER_ADMIN_USERNAME", "admin@example.com")),
			SweepInterval:      getEnvAsDuration("LOCKOUT_SWEEP_INTERVAL", 1*time.Hour),
		},
		Seed: SeedConfig{
			Enabled:       getEnv("SEED_DATA", "true") == "true",
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			UserPassword:  getEnv("SEED_USER_PASSWORD", ""),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", ""),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("%w: DB_PASSWORD is required", models.ErrConfiguration)
	}

	if cfg.Lockout.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("%w: LOCKOUT_MAX_FAILED_ATTEMPTS must be at least 1", models.ErrConfiguration)
	}
	if cfg.Lockout.Duration <= 0 || cfg.Lockout.AdminLockDuration <= 0 {
		return nil, fmt.Errorf("%w: lockout durations must be positive", models.ErrConfiguration)
	}

	if cfg.Seed.Enabled && (cfg.Seed.AdminPassword == "" || cfg.Seed.UserPassword == "") {
		return nil, fmt.Errorf("%w: SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD are required when SEED_DATA is true", models.ErrConfiguration)
	}

	if cfg.Email.FromAddress != "" && cfg.Email.AWSRegion == "" {
		return nil, fmt.Errorf("%w: AWS_REGION is required when EMAIL_FROM_ADDRESS is set", models.ErrConfiguration)
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces a 256-bit minimum for the HMAC signing key
func validateJWTSecret(secret string) error {
	const minLength = 32

	if len(secret) < minLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d characters (got %d)",
			models.ErrConfiguration, minLength, len(secret))
	}

	if strings.Count(secret, secret[:1]) == len(secret) {
		return fmt.Errorf("%w: JWT_SECRET cannot be a single repeated character", models.ErrConfiguration)
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsPositiveInt is the strict variant of getEnvAsInt: a present but
// unparsable or non-positive value is a configuration error
func getEnvAsPositiveInt(key string, defaultVal int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil || intVal <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer (got %q)", models.ErrConfiguration, key, value)
	}
	return intVal, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// splitList splits a comma separated value, dropping empty entries
func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		return origins
	}

	if env == "production" {
		return []string{}
	}

	// Development: the admin console dev server
	return []string{
		"http://localhost:4200",
		"https://localhost:4200",
		"http://127.0.0.1:4200",
	}
}
