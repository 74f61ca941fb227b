package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/subosito/gotenv"
)

// Database backends accepted in DB_TYPE.
const (
	DatabaseTypePostgres = "postgresql"
	DatabaseTypeMongo    = "mongodb"
	DatabaseTypeMemory   = "memory"
)

// Config is the full runtime configuration of the feed service
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	JWT      JWTConfig      `json:"jwt"`
	Cache    CacheConfig    `json:"cache"`
	Posts    PostsConfig    `json:"posts"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Debug          bool          `json:"debug"`
	RequestTimeout time.Duration `json:"requestTimeout"`
	CORSOrigins    string        `json:"corsOrigins"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type     string           `json:"type"`
	Postgres PostgreSQLConfig `json:"postgres"`
	Mongo    MongoDBConfig    `json:"mongo"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	AutoMigrate     bool          `json:"autoMigrate"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	Collection     string        `json:"collection"`
	MaxPoolSize    int           `json:"maxPoolSize"`
	ConnectTimeout time.Duration `json:"connectTimeout"`
}

// JWTConfig holds the identity provider key material
type JWTConfig struct {
	PublicKey string `json:"publicKey"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Backend         string        `json:"backend"`
	Prefix          string        `json:"prefix"`
	TTL             time.Duration `json:"ttl"`
	MaxMemory       int64         `json:"maxMemory"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	Redis           RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address"`
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxConnAge   time.Duration `json:"maxConnAge"`
}

// PostsConfig holds knobs of the post service itself
type PostsConfig struct {
	PageSize         int `json:"pageSize"`
	MaxPageSize      int `json:"maxPageSize"`
	MaxUpdateRetries int `json:"maxUpdateRetries"`
}

// LoadFromEnv loads configuration from the environment.
// Precedence: explicit environment variables, then values from a .env file
// (godotenv never overrides variables that are already set), then defaults.
func LoadFromEnv() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return build(os.Getenv)
}

// LoadFromEnvFile reads a dotenv file and builds the configuration from it
// alone, without touching the process environment.
func LoadFromEnvFile(path string) (*Config, error) {
	env, err := gotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return LoadFromMap(env)
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return build(func(key string) string {
		return envMap[key]
	})
}

func build(lookup func(string) string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if value := lookup(key); value != "" {
			return value
		}
		return defaultValue
	}
	getInt := func(key string, defaultValue int) int {
		if intValue, err := strconv.Atoi(lookup(key)); err == nil {
			return intValue
		}
		return defaultValue
	}
	getInt64 := func(key string, defaultValue int64) int64 {
		if intValue, err := strconv.ParseInt(lookup(key), 10, 64); err == nil {
			return intValue
		}
		return defaultValue
	}
	getBool := func(key string, defaultValue bool) bool {
		if boolValue, err := strconv.ParseBool(lookup(key)); err == nil {
			return boolValue
		}
		return defaultValue
	}
	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if duration, err := time.ParseDuration(lookup(key)); err == nil {
			return duration
		}
		return defaultValue
	}

	config := &Config{
		Server: ServerConfig{
			Host:           get("HOST", "0.0.0.0"),
			Port:           getInt("SERVER_PORT", 8080),
			Debug:          getBool("DEBUG", false),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
			CORSOrigins:    get("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Type: get("DB_TYPE", DatabaseTypePostgres),
			Postgres: PostgreSQLConfig{
				Host:            get("POSTGRES_HOST", "localhost"),
				Port:            getInt("POSTGRES_PORT", 5432),
				Username:        get("POSTGRES_USERNAME", ""),
				Password:        get("POSTGRES_PASSWORD", ""),
				Database:        get("POSTGRES_DATABASE", "feed"),
				SSLMode:         get("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
				AutoMigrate:     getBool("POSTGRES_AUTO_MIGRATE", true),
			},
			Mongo: MongoDBConfig{
				URI:            get("MONGO_URI", "mongodb://localhost:27017"),
				Database:       get("MONGO_DATABASE", "feed"),
				Collection:     get("MONGO_COLLECTION", "posts"),
				MaxPoolSize:    getInt("MONGO_MAX_POOL_SIZE", 50),
				ConnectTimeout: getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			},
		},
		JWT: JWTConfig{
			PublicKey: get("JWT_PUBLIC_KEY", ""),
		},
		Cache: CacheConfig{
			Enabled:         getBool("CACHE_ENABLED", true),
			Backend:         get("CACHE_BACKEND", "memory"),
			Prefix:          get("CACHE_PREFIX", "feed:"),
			TTL:             getDuration("CACHE_TTL", 5*time.Minute),
			MaxMemory:       getInt64("CACHE_MAX_MEMORY", 64*1024*1024),
			CleanupInterval: getDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
			Redis: RedisConfig{
				Address:      get("REDIS_ADDRESS", "localhost:6379"),
				Password:     get("REDIS_PASSWORD", ""),
				Database:     getInt("REDIS_DATABASE", 0),
				PoolSize:     getInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
				MaxConnAge:   time.Duration(getInt("REDIS_MAX_CONN_AGE", 300)) * time.Second,
			},
		},
		Posts: PostsConfig{
			PageSize:         getInt("POSTS_PAGE_SIZE", 3),
			MaxPageSize:      getInt("POSTS_MAX_PAGE_SIZE", 100),
			MaxUpdateRetries: getInt("POSTS_MAX_UPDATE_RETRIES", 8),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.JWT.PublicKey) == "" {
		errors = append(errors, "JWT_PUBLIC_KEY is required")
	}

	validDbTypes := []string{DatabaseTypePostgres, DatabaseTypeMongo, DatabaseTypeMemory}
	if !contains(validDbTypes, c.Database.Type) {
		errors = append(errors, fmt.Sprintf("DB_TYPE must be one of: %s", strings.Join(validDbTypes, ", ")))
	}

	validCacheBackends := []string{"memory", "redis"}
	if !contains(validCacheBackends, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validCacheBackends, ", ")))
	}

	if c.Posts.PageSize <= 0 {
		errors = append(errors, "POSTS_PAGE_SIZE must be greater than 0")
	}
	if c.Posts.MaxPageSize < c.Posts.PageSize {
		errors = append(errors, "POSTS_MAX_PAGE_SIZE must not be lower than POSTS_PAGE_SIZE")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Addr is the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
