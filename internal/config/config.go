// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	API       APIConfig       `koanf:"api"`
	Storage   StorageConfig   `koanf:"storage"`
	Server    ServerConfig    `koanf:"server"`
	DevAPI    DevAPIConfig    `koanf:"devapi"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// APIConfig points the console at the back-office REST API.
type APIConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// StorageConfig selects where the session survives restarts.
type StorageConfig struct {
	Driver    string `koanf:"driver"`
	Profile   string `koanf:"profile"`
	Path      string `koanf:"path"`
	RedisURL  string `koanf:"redis_url"`
	SQLDriver string `koanf:"sql_driver"`
	SQLDSN    string `koanf:"sql_dsn"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DevAPIConfig struct {
	Server   ServerConfig `koanf:"server"`
	RedisURL string       `koanf:"redis_url"`
	Users    []SeedUser   `koanf:"users"`
}

type SeedUser struct {
	ID       string `koanf:"id"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
	Role     string `koanf:"role"`
	TenantID string `koanf:"tenant_id"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQL    = "sql"
)

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Farm Back Office",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"api.base_url":            "http://localhost:8081",
		"api.timeout":             "15s",
		"api.requests_per_second": 10.0,
		"api.burst":               20,

		"storage.driver":     StorageFile,
		"storage.profile":    "default",
		"storage.sql_driver": "sqlite",

		"server.host":             "127.0.0.1",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"devapi.server.host":             "127.0.0.1",
		"devapi.server.port":             8081,
		"devapi.server.read_timeout":     "30s",
		"devapi.server.write_timeout":    "30s",
		"devapi.server.idle_timeout":     "120s",
		"devapi.server.shutdown_timeout": "15s",

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "farm-backoffice",
		"jwt.audience":             "farm-backoffice-api",

		"rate_limit.requests": 10,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    5,

		"log.level":  "info",
		"log.format": "text",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "farm-backoffice",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"BACKOFFICE_API_URL":          "api.base_url",
	"BACKOFFICE_API_TIMEOUT":      "api.timeout",
	"BACKOFFICE_STORAGE":          "storage.driver",
	"BACKOFFICE_PROFILE":          "storage.profile",
	"BACKOFFICE_STORAGE_PATH":     "storage.path",
	"BACKOFFICE_REDIS_URL":        "storage.redis_url",
	"BACKOFFICE_SQL_DRIVER":       "storage.sql_driver",
	"BACKOFFICE_SQL_DSN":          "storage.sql_dsn",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"DEVAPI_PORT":                 "devapi.server.port",
	"DEVAPI_REDIS_URL":            "devapi.redis_url",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("BACKOFFICE_API_URL is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL: %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.Storage.Profile == "" {
		return fmt.Errorf("storage.profile is required")
	}

	switch c.Storage.Driver {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("BACKOFFICE_REDIS_URL is required for redis storage")
		}
	case StorageSQL:
		if c.Storage.SQLDriver != "sqlite" && c.Storage.SQLDriver != "pgx" {
			return fmt.Errorf(
				"storage.sql_driver must be sqlite or pgx, got %q",
				c.Storage.SQLDriver,
			)
		}
		if c.Storage.SQLDriver == "pgx" && c.Storage.SQLDSN == "" {
			return fmt.Errorf("BACKOFFICE_SQL_DSN is required for pgx storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
