package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	S3         S3Config
	Log        LogConfig
	Engine     EngineConfig
	CORS       CORSConfig
	Transcript TranscriptConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TranscriptConfig controls archiving of prompt/response transcripts.
type TranscriptConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// EngineProviderConfig holds settings for a single text-generation provider.
type EngineProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	MaxTokens    int    `mapstructure:"max_tokens"`
}

// EngineConfig holds generation engine settings with multi-provider support.
type EngineConfig struct {
	// Legacy flat fields (backwards-compatible)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	MaxTokens    int    `mapstructure:"max_tokens"`

	// Multi-provider fields
	Primary   EngineProviderConfig `mapstructure:"primary"`
	Secondary EngineProviderConfig `mapstructure:"secondary"`
	Tertiary  EngineProviderConfig `mapstructure:"tertiary"`

	// Sessions is the number of independent generation sessions; each serves one
	// request at a time.
	Sessions int `mapstructure:"sessions"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (e *EngineConfig) PrimaryConfig() *EngineProviderConfig {
	if e.Primary.Provider != "" {
		return &e.Primary
	}
	return &EngineProviderConfig{
		Provider:     e.Provider,
		APIKey:       e.APIKey,
		DefaultModel: e.DefaultModel,
		TimeoutSecs:  e.TimeoutSecs,
		MaxTokens:    e.MaxTokens,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *EngineConfig) SecondaryConfig() *EngineProviderConfig {
	if e.Secondary.Provider != "" {
		return &e.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (e *EngineConfig) TertiaryConfig() *EngineProviderConfig {
	if e.Tertiary.Provider != "" {
		return &e.Tertiary
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds settings for verifying bearer tokens issued upstream.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	DevTTL   time.Duration `mapstructure:"dev_ttl"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the INVOICER_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invoicer")
	v.SetDefault("db.password", "invoicer_secret")
	v.SetDefault("db.name", "invoicer_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "invoicer")
	v.SetDefault("jwt.audience", "access")
	v.SetDefault("jwt.dev_ttl", "24h")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "invoicer-transcripts")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Transcript defaults
	v.SetDefault("transcript.enabled", false)
	v.SetDefault("transcript.bucket", "")
	v.SetDefault("transcript.prefix", "transcripts")

	// Engine defaults (legacy flat)
	v.SetDefault("engine.provider", "claude")
	v.SetDefault("engine.api_key", "")
	v.SetDefault("engine.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("engine.timeout_secs", 120)
	v.SetDefault("engine.max_tokens", 1024)
	v.SetDefault("engine.sessions", 1)

	// Engine primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("engine."+tier+".provider", "")
		v.SetDefault("engine."+tier+".api_key", "")
		v.SetDefault("engine."+tier+".default_model", "")
		v.SetDefault("engine."+tier+".timeout_secs", 120)
		v.SetDefault("engine."+tier+".max_tokens", 1024)
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "INVOICER_SERVER_PORT",
		"server.read_timeout":     "INVOICER_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "INVOICER_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout": "INVOICER_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":      "INVOICER_SERVER_ENVIRONMENT",
		"db.host":                 "INVOICER_DB_HOST",
		"db.port":                 "INVOICER_DB_PORT",
		"db.user":                 "INVOICER_DB_USER",
		"db.password":             "INVOICER_DB_PASSWORD",
		"db.name":                 "INVOICER_DB_NAME",
		"db.sslmode":              "INVOICER_DB_SSLMODE",
		"db.max_open":             "INVOICER_DB_MAX_OPEN",
		"db.max_idle":             "INVOICER_DB_MAX_IDLE",
		"jwt.secret":              "INVOICER_JWT_SECRET",
		"jwt.issuer":              "INVOICER_JWT_ISSUER",
		"jwt.audience":            "INVOICER_JWT_AUDIENCE",
		"jwt.dev_ttl":             "INVOICER_JWT_DEV_TTL",
		"s3.region":               "INVOICER_S3_REGION",
		"s3.bucket":               "INVOICER_S3_BUCKET",
		"s3.endpoint":             "INVOICER_S3_ENDPOINT",
		"s3.access_key":           "INVOICER_S3_ACCESS_KEY",
		"s3.secret_key":           "INVOICER_S3_SECRET_KEY",
		"log.level":               "INVOICER_LOG_LEVEL",
		"log.format":              "INVOICER_LOG_FORMAT",
		"cors.allowed_origins":    "INVOICER_CORS_ALLOWED_ORIGINS",
		"transcript.enabled":      "INVOICER_TRANSCRIPT_ENABLED",
		"transcript.bucket":       "INVOICER_TRANSCRIPT_BUCKET",
		"transcript.prefix":       "INVOICER_TRANSCRIPT_PREFIX",
		"engine.provider":         "INVOICER_ENGINE_PROVIDER",
		"engine.api_key":          "INVOICER_ENGINE_API_KEY",
		"engine.default_model":    "INVOICER_ENGINE_DEFAULT_MODEL",
		"engine.timeout_secs":     "INVOICER_ENGINE_TIMEOUT_SECS",
		"engine.max_tokens":       "INVOICER_ENGINE_MAX_TOKENS",
		"engine.sessions":         "INVOICER_ENGINE_SESSIONS",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		for _, field := range []string{"provider", "api_key", "default_model", "timeout_secs", "max_tokens"} {
			key := "engine." + tier + "." + field
			envBindings[key] = "INVOICER_ENGINE_" + strings.ToUpper(tier) + "_" + strings.ToUpper(field)
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if INVOICER_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOICER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:   v.GetString("jwt.secret"),
		Issuer:   v.GetString("jwt.issuer"),
		Audience: v.GetString("jwt.audience"),
		DevTTL:   v.GetDuration("jwt.dev_ttl"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Transcript = TranscriptConfig{
		Enabled: v.GetBool("transcript.enabled"),
		Bucket:  v.GetString("transcript.bucket"),
		Prefix:  v.GetString("transcript.prefix"),
	}
	if cfg.Transcript.Bucket == "" {
		cfg.Transcript.Bucket = cfg.S3.Bucket
	}

	providerConfig := func(tier string) EngineProviderConfig {
		return EngineProviderConfig{
			Provider:     v.GetString("engine." + tier + ".provider"),
			APIKey:       v.GetString("engine." + tier + ".api_key"),
			DefaultModel: v.GetString("engine." + tier + ".default_model"),
			TimeoutSecs:  v.GetInt("engine." + tier + ".timeout_secs"),
			MaxTokens:    v.GetInt("engine." + tier + ".max_tokens"),
		}
	}
	cfg.Engine = EngineConfig{
		Provider:     v.GetString("engine.provider"),
		APIKey:       v.GetString("engine.api_key"),
		DefaultModel: v.GetString("engine.default_model"),
		TimeoutSecs:  v.GetInt("engine.timeout_secs"),
		MaxTokens:    v.GetInt("engine.max_tokens"),
		Primary:      providerConfig("primary"),
		Secondary:    providerConfig("secondary"),
		Tertiary:     providerConfig("tertiary"),
		Sessions:     v.GetInt("engine.sessions"),
	}
	if cfg.Engine.Sessions < 1 {
		return nil, fmt.Errorf("engine.sessions must be at least 1, got %d", cfg.Engine.Sessions)
	}

	return cfg, nil
}
