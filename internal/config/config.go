package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Wiki      WikiConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxUpload    int64
}

// StorageConfig selects the object store backend and the two buckets.
type StorageConfig struct {
	Backend        string // minio | mongo | memory
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	InfoBucket     string
	UserBucket     string
	RequestTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is empty when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// WikiConfig tunes the page and account engines.
type WikiConfig struct {
	HistoryLimit           int
	Locks                  string // none | memory | redis
	LockLease              time.Duration
	StrictWrites           bool
	RequireRegisteredActor bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 5)
	v.SetDefault("STORAGE_BACKEND", "minio")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("WIKI_INFO_BUCKET", "wiki_info")
	v.SetDefault("WIKI_USER_BUCKET", "wiki_login")
	v.SetDefault("STORAGE_TIMEOUT", 10)
	v.SetDefault("MONGODB_DATABASE", "wikifun")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("WIKI_HISTORY_LIMIT", 10)
	v.SetDefault("WIKI_LOCKS", "none")
	v.SetDefault("WIKI_LOCK_LEASE_SECONDS", 10)
	v.SetDefault("WIKI_STRICT_WRITES", false)
	v.SetDefault("WIKI_REQUIRE_REGISTERED", true)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxUpload:    v.GetInt64("SERVER_MAX_UPLOAD_MB") << 20,
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Endpoint:       v.GetString("MINIO_ENDPOINT"),
			AccessKey:      v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:      v.GetString("MINIO_SECRET_KEY"),
			UseSSL:         v.GetBool("MINIO_USE_SSL"),
			InfoBucket:     v.GetString("WIKI_INFO_BUCKET"),
			UserBucket:     v.GetString("WIKI_USER_BUCKET"),
			RequestTimeout: time.Duration(v.GetInt("STORAGE_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:          v.GetString("KEYCLOAK_URL"),
			Realm:        v.GetString("KEYCLOAK_REALM"),
			ClientID:     v.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: v.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Wiki: WikiConfig{
			HistoryLimit:           v.GetInt("WIKI_HISTORY_LIMIT"),
			Locks:                  strings.ToLower(v.GetString("WIKI_LOCKS")),
			LockLease:              time.Duration(v.GetInt("WIKI_LOCK_LEASE_SECONDS")) * time.Second,
			StrictWrites:           v.GetBool("WIKI_STRICT_WRITES"),
			RequireRegisteredActor: v.GetBool("WIKI_REQUIRE_REGISTERED"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET is not set; set a secure value in production")
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "minio", "memory":
	case "mongo":
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORAGE_BACKEND=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Wiki.Locks {
	case "none", "memory":
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("WIKI_LOCKS=redis requires REDIS_HOST")
		}
	default:
		return fmt.Errorf("unknown WIKI_LOCKS %q", c.Wiki.Locks)
	}
	if c.Storage.InfoBucket == "" || c.Storage.UserBucket == "" {
		return fmt.Errorf("bucket names must not be empty")
	}
	if c.Storage.InfoBucket == c.Storage.UserBucket {
		return fmt.Errorf("info and user buckets must differ")
	}
	if c.Wiki.HistoryLimit < 1 {
		return fmt.Errorf("WIKI_HISTORY_LIMIT must be positive, got %d", c.Wiki.HistoryLimit)
	}
	return nil
}
