package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr                string        `yaml:"addr"`
	DatabaseURL         string        `yaml:"databaseUrl"`
	JWTSecret           string        `yaml:"jwtSecret"`
	DataEncryptionKey   string        `yaml:"dataEncryptionKey"`
	Environment         string        `yaml:"environment"`
	SeedTenantCode      string        `yaml:"seedTenantCode"`
	SeedTenantName      string        `yaml:"seedTenantName"`
	SeedAdminEmail      string        `yaml:"seedAdminEmail"`
	SeedAdminPassword   string        `yaml:"seedAdminPassword"`
	RenderServiceURL    string        `yaml:"renderServiceUrl"`
	RenderTimeout       time.Duration `yaml:"renderTimeout"`
	EmailFrom           string        `yaml:"emailFrom"`
	EmailEnabled        bool          `yaml:"emailEnabled"`
	SMTPHost            string        `yaml:"smtpHost"`
	SMTPPort            int           `yaml:"smtpPort"`
	SMTPUser            string        `yaml:"smtpUser"`
	SMTPPassword        string        `yaml:"smtpPassword"`
	SMTPUseTLS          bool          `yaml:"smtpUseTls"`
	RunMigrations       bool          `yaml:"runMigrations"`
	RunSeed             bool          `yaml:"runSeed"`
	MaxBodyBytes        int64         `yaml:"maxBodyBytes"`
	RateLimitPerMinute  int           `yaml:"rateLimitPerMinute"`
	BalanceSyncInterval time.Duration `yaml:"balanceSyncInterval"`
	MetricsEnabled      bool          `yaml:"metricsEnabled"`
}

// Load reads configuration from the environment, optionally overlaid on a
// YAML file named by CONFIG_FILE. Environment variables win over file values.
func Load() Config {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config file %s ignored: %v\n", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg
}

func defaults() Config {
	return Config{
		Addr:                ":8080",
		Environment:         "development",
		SeedTenantCode:      "acme",
		SeedTenantName:      "Acme Corp",
		RenderTimeout:       30 * time.Second,
		EmailFrom:           "no-reply@example.com",
		SMTPPort:            587,
		SMTPUseTLS:          true,
		RunMigrations:       true,
		RunSeed:             true,
		MaxBodyBytes:        1048576,
		RateLimitPerMinute:  60,
		BalanceSyncInterval: 24 * time.Hour,
		MetricsEnabled:      true,
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Addr, "APP_ADDR")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.DataEncryptionKey, "DATA_ENCRYPTION_KEY")
	setString(&cfg.Environment, "APP_ENV")
	setString(&cfg.SeedTenantCode, "SEED_TENANT_CODE")
	setString(&cfg.SeedTenantName, "SEED_TENANT_NAME")
	setString(&cfg.SeedAdminEmail, "SEED_ADMIN_EMAIL")
	setString(&cfg.SeedAdminPassword, "SEED_ADMIN_PASSWORD")
	setString(&cfg.RenderServiceURL, "RENDER_SERVICE_URL")
	setDuration(&cfg.RenderTimeout, "RENDER_TIMEOUT")
	setString(&cfg.EmailFrom, "EMAIL_FROM")
	setBool(&cfg.EmailEnabled, "EMAIL_ENABLED")
	setString(&cfg.SMTPHost, "SMTP_HOST")
	setInt(&cfg.SMTPPort, "SMTP_PORT")
	setString(&cfg.SMTPUser, "SMTP_USER")
	setString(&cfg.SMTPPassword, "SMTP_PASSWORD")
	setBool(&cfg.SMTPUseTLS, "SMTP_USE_TLS")
	setBool(&cfg.RunMigrations, "RUN_MIGRATIONS")
	setBool(&cfg.RunSeed, "RUN_SEED")
	setInt64(&cfg.MaxBodyBytes, "MAX_BODY_BYTES")
	setInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setDuration(&cfg.BalanceSyncInterval, "BALANCE_SYNC_INTERVAL")
	setBool(&cfg.MetricsEnabled, "METRICS_ENABLED")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		*dst = parsed
	}
}

func setInt(dst *int, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*dst = parsed
	}
}

func setInt64(dst *int64, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		*dst = parsed
	}
}

func setDuration(dst *time.Duration, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		*dst = parsed
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
