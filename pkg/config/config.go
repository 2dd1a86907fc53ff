package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	defaultAccessSecret  = "change-me-access-secret"
	defaultRefreshSecret = "change-me-refresh-secret"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	OAuth     OAuthConfig     `envconfig:"OAUTH"`
	JWT       JWTConfig       `envconfig:"JWT"`
	Storage   StorageConfig   `envconfig:"STORAGE"`
	Speech    SpeechConfig    `envconfig:"SPEECH"`
	LLM       LLMConfig       `envconfig:"LLM"`
	Analytics AnalyticsConfig `envconfig:"ANALYTICS"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
	// AuthRateLimit is requests per second per client IP on /auth routes.
	AuthRateLimit float64 `envconfig:"AUTH_RATE_LIMIT" default:"5"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver        string `envconfig:"DRIVER" default:"postgres"` // "postgres" or "memory"
	Host          string `envconfig:"HOST" default:"localhost"`
	Port          string `envconfig:"PORT" default:"5432"`
	User          string `envconfig:"USER" default:"postgres"`
	Password      string `envconfig:"PASSWORD" default:"postgres"`
	Name          string `envconfig:"NAME" default:"call_insight"`
	SSLMode       string `envconfig:"SSLMODE" default:"disable"`
	MaxConns      int    `envconfig:"MAX_CONNS" default:"25"`
	MinConns      int    `envconfig:"MIN_CONNS" default:"5"`
	AutoMigrate   bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"warn"`
}

// RedisConfig holds Redis configuration. When disabled an in-process store is used.
type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	Google GoogleOAuthConfig `envconfig:"GOOGLE"`
}

// GoogleOAuthConfig holds Google OAuth configuration
type GoogleOAuthConfig struct {
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	RedirectURL  string `envconfig:"REDIRECT_URL" default:"http://localhost:8080/api/v1/auth/google/callback"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret  string        `envconfig:"ACCESS_SECRET" default:"change-me-access-secret"`
	RefreshSecret string        `envconfig:"REFRESH_SECRET" default:"change-me-refresh-secret"`
	AccessExpiry  time.Duration `envconfig:"ACCESS_EXPIRY" default:"15m"`
	RefreshExpiry time.Duration `envconfig:"REFRESH_EXPIRY" default:"168h"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider        string        `envconfig:"PROVIDER" default:"minio"` // "minio", "s3" or "none"
	Endpoint        string        `envconfig:"ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string        `envconfig:"ACCESS_KEY"`
	SecretAccessKey string        `envconfig:"SECRET_KEY"`
	BucketName      string        `envconfig:"BUCKET" default:"call-recordings"`
	Region          string        `envconfig:"REGION" default:"us-east-1"`
	UseSSL          bool          `envconfig:"USE_SSL" default:"false"`
	ServerSideEnc   string        `envconfig:"SSE"`
	PresignExpiry   time.Duration `envconfig:"PRESIGN_EXPIRY" default:"1h"`
	MaxUploadMB     int64         `envconfig:"MAX_UPLOAD_MB" default:"100"`
}

// MaxUploadBytes returns the upload cap in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// SpeechConfig selects and configures the speech-to-text provider.
type SpeechConfig struct {
	Provider          string `envconfig:"PROVIDER" default:"none"` // "google", "assemblyai" or "none"
	GoogleCredentials string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	AssemblyAIKey     string `envconfig:"ASSEMBLYAI_API_KEY"`
	Language          string `envconfig:"LANGUAGE" default:"en-US"`
	MaxAttempts       int    `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint used for analysis.
type LLMConfig struct {
	APIKey  string        `envconfig:"API_KEY"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model   string        `envconfig:"MODEL" default:"llama-3.3-70b-versatile"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

// AnalyticsConfig holds analytics configuration
type AnalyticsConfig struct {
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"60s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	config.Storage.Provider = strings.ToLower(strings.TrimSpace(config.Storage.Provider))
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	config.Speech.Provider = strings.ToLower(strings.TrimSpace(config.Speech.Provider))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvProduction)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, memory (got %q)", c.Database.Driver)
	}
	switch c.Storage.Provider {
	case "minio", "s3", "none":
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be one of minio, s3, none (got %q)", c.Storage.Provider)
	}
	switch c.Speech.Provider {
	case "google", "assemblyai", "none":
	default:
		return fmt.Errorf("SPEECH_PROVIDER must be one of google, assemblyai, none (got %q)", c.Speech.Provider)
	}
	if c.Speech.MaxAttempts < 1 {
		return fmt.Errorf("SPEECH_MAX_ATTEMPTS must be at least 1")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("STORAGE_MAX_UPLOAD_MB must be positive")
	}

	if c.IsProduction() {
		if c.JWT.AccessSecret == defaultAccessSecret || c.JWT.RefreshSecret == defaultRefreshSecret {
			return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
		if c.Database.AutoMigrate {
			return fmt.Errorf("DB_AUTO_MIGRATE is not allowed in production, run cmd/migrate instead")
		}
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
