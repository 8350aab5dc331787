package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	JWT       JWTConfig       `toml:"jwt"`
	Rewards   RewardsConfig   `toml:"rewards"`
	Firebase  FirebaseConfig  `toml:"firebase"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type ServerConfig struct {
	Port            string        `toml:"port"`
	Env             string        `toml:"env"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // mysql | postgres
	DSN             string        `toml:"dsn"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// JWTConfig verifies access tokens minted by the identity provider.
// AccessExpiry is only used when minting tokens for local testing.
type JWTConfig struct {
	AccessSecret string        `toml:"access_secret"`
	AccessExpiry time.Duration `toml:"access_expiry"`
	Issuer       string        `toml:"issuer"`
}

type RewardsConfig struct {
	// Timezone decides where a calendar day starts for streaks, task
	// completions and view dedup.
	Timezone string `toml:"timezone"`
}

type FirebaseConfig struct {
	ServiceAccountPath string `toml:"service_account_path"`
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

var (
	ErrPortEmpty      = errors.New("server port is empty")
	ErrDriverUnknown  = errors.New("database driver must be mysql or postgres")
	ErrDSNEmpty       = errors.New("database dsn is empty")
	ErrSecretEmpty    = errors.New("jwt access secret is empty")
	ErrTimezone       = errors.New("rewards timezone is invalid")
	ErrRateLimitBurst = errors.New("rate limit burst must be positive when rps is set")
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8099",
			Env:             "development",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "viewearn:viewearn@tcp(localhost:3306)/viewearn?charset=utf8mb4&parseTime=True&loc=UTC",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: "change-me-in-production",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "viewearn",
		},
		Rewards: RewardsConfig{
			Timezone: "Asia/Kolkata",
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the config from defaults, then the TOML file at path (if
// path is non-empty), then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Env = getEnv("APP_ENV", cfg.Server.Env)
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.JWT.AccessSecret = getEnv("JWT_ACCESS_SECRET", cfg.JWT.AccessSecret)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	cfg.Rewards.Timezone = getEnv("REWARDS_TIMEZONE", cfg.Rewards.Timezone)
	cfg.Firebase.ServiceAccountPath = getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", cfg.Firebase.ServiceAccountPath)

	if v, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", ""), 64); err == nil {
		cfg.RateLimit.RPS = v
	}
	if v, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "")); err == nil {
		cfg.RateLimit.Burst = v
	}
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Server.Port == "" {
		errs = append(errs, ErrPortEmpty)
	}
	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "postgres" {
		errs = append(errs, ErrDriverUnknown)
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, ErrDSNEmpty)
	}
	if cfg.JWT.AccessSecret == "" {
		errs = append(errs, ErrSecretEmpty)
	}
	if _, err := time.LoadLocation(cfg.Rewards.Timezone); err != nil || cfg.Rewards.Timezone == "" {
		errs = append(errs, ErrTimezone)
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst <= 0 {
		errs = append(errs, ErrRateLimitBurst)
	}
	return errors.Join(errs...)
}

func (cfg *Config) IsProduction() bool {
	return cfg.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
