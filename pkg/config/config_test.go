package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ENVIRONMENT", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.MaxUploadBytes() != 100<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.Storage.MaxUploadBytes(), 100<<20)
	}
	if cfg.Speech.MaxAttempts != 3 {
		t.Errorf("Speech.MaxAttempts = %d, want 3", cfg.Speech.MaxAttempts)
	}
	if cfg.JWT.AccessExpiry != 15*time.Minute {
		t.Errorf("JWT.AccessExpiry = %v, want 15m", cfg.JWT.AccessExpiry)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("STORAGE_PROVIDER", "S3")
	t.Setenv("SPEECH_PROVIDER", "assemblyai")
	t.Setenv("OAUTH_GOOGLE_CLIENT_ID", "client")
	t.Setenv("OAUTH_GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Provider != "s3" {
		t.Errorf("Storage.Provider = %q, want s3", cfg.Storage.Provider)
	}
	if !cfg.OAuth.Google.Enabled() {
		t.Error("expected Google OAuth to be enabled")
	}
	want := "host=db.internal port=5432 user=postgres password=postgres dbname=call_insight sslmode=disable"
	if got := cfg.GetDatabaseDSN(); got != want {
		t.Errorf("GetDatabaseDSN() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Environment: EnvDevelopment},
			Database: DatabaseConfig{Driver: "postgres"},
			JWT:      JWTConfig{AccessSecret: defaultAccessSecret, RefreshSecret: defaultRefreshSecret},
			Storage:  StorageConfig{Provider: "minio", MaxUploadMB: 100},
			Speech:   SpeechConfig{Provider: "none", MaxAttempts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "development defaults", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Provider = "gcs" }, wantErr: true},
		{name: "unknown speech", mutate: func(c *Config) { c.Speech.Provider = "whisper" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.Speech.MaxAttempts = 0 }, wantErr: true},
		{name: "production default secrets", mutate: func(c *Config) { c.Server.Environment = EnvProduction }, wantErr: true},
		{
			name: "production auto migrate",
			mutate: func(c *Config) {
				c.Server.Environment = EnvProduction
				c.JWT = JWTConfig{AccessSecret: "a", RefreshSecret: "b"}
				c.Database.AutoMigrate = true
			},
			wantErr: true,
		},
		{
			name: "production configured",
			mutate: func(c *Config) {
				c.Server.Environment = EnvProduction
				c.JWT = JWTConfig{AccessSecret: "a", RefreshSecret: "b"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
