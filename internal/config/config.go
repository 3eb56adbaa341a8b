package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything the process needs at startup. Runtime-tunable
// knobs (featured caps, expiry windows) live in admin_settings instead.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	LogSQL   bool           `mapstructure:"log_sql"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"` // public site base, used in email links
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer          string        `mapstructure:"issuer"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // "s3" | "local"
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

type MailConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	APIKey     string `mapstructure:"api_key"`
	FromAddr   string `mapstructure:"from_addr"`
	FromName   string `mapstructure:"from_name"`
}

type TasksConfig struct {
	RollupEnabled bool `mapstructure:"rollup_enabled"`
	DigestEnabled bool `mapstructure:"digest_enabled"`
	SweepEnabled  bool `mapstructure:"sweep_enabled"`

	DigestConcurrency int `mapstructure:"digest_concurrency"`
}

// Load reads config from the environment (OPENHAUS_ prefix) and an
// optional config file. Env wins over file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("auth.access_token_ttl", 2*time.Hour)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.issuer", "openhaus")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_path", "openhaus")
	v.SetDefault("tasks.rollup_enabled", true)
	v.SetDefault("tasks.digest_enabled", true)
	v.SetDefault("tasks.sweep_enabled", true)
	v.SetDefault("tasks.digest_concurrency", 5)

	v.SetEnvPrefix("OPENHAUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (OPENHAUS_DATABASE_DSN)")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (OPENHAUS_AUTH_JWT_SECRET)")
	}

	return &cfg, nil
}
