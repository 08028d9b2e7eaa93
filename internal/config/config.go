package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"dataanalyst/internal/errors"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
	Upload    UploadConfig    `yaml:"upload"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cleaning  CleaningConfig  `yaml:"cleaning"`
	Profiling ProfilingConfig `yaml:"profiling"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Addr returns the dashboard listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// Storage backends
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendAzure = "azure"
)

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Backend  string        `yaml:"backend"`
	LocalDir string        `yaml:"local_dir"`
	URLTTL   time.Duration `yaml:"url_ttl"`

	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	GCSCredentialsFile string `yaml:"gcs_credentials_file"`

	AzureAccount   string `yaml:"azure_account"`
	AzureKey       string `yaml:"azure_key"`
	AzureContainer string `yaml:"azure_container"`
	AzureEndpoint  string `yaml:"azure_endpoint"`
}

// SessionConfig controls in-memory dataset retention
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	JanitorSchedule string        `yaml:"janitor_schedule"`
	CookieSecure    bool          `yaml:"cookie_secure"`
}

// UploadConfig limits uploads
type UploadConfig struct {
	MaxMB int `yaml:"max_mb"`
}

// MaxBytes returns the upload limit in bytes
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxMB) << 20
}

// RateLimitConfig holds per-client upload rate limits
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CleaningConfig tunes the cleaning pipeline
type CleaningConfig struct {
	// LenientNumbers lets text columns such as "$1,200" or "(5)" convert to numbers
	LenientNumbers bool `yaml:"lenient_numbers"`
}

// ProfilingConfig holds admin router settings
type ProfilingConfig struct {
	Port    string `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig holds log level and file sink settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    "8050",
			GinMode: "release",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			URL:    "file:dataanalyst.db?_foreign_keys=on",
		},
		Storage: StorageConfig{
			Backend:  BackendLocal,
			LocalDir: "uploads",
			URLTTL:   15 * time.Minute,
		},
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			JanitorSchedule: "@every 15m",
		},
		Upload:    UploadConfig{MaxMB: 50},
		RateLimit: RateLimitConfig{RPS: 2, Burst: 5},
		Profiling: ProfilingConfig{Port: "6060"},
		Logging:   LoggingConfig{Level: "INFO", Dir: "logs"},
	}
}

// Load reads configuration from the optional CONFIG_FILE and environment
// variables and validates it. Environment variables win over the file.
func Load() (*Config, error) {
	config := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	applyServerEnv(&config.Server)
	applyDatabaseEnv(&config.Database)
	applyStorageEnv(&config.Storage)
	applySessionEnv(&config.Session)
	config.Upload.MaxMB = getEnvIntOrDefault("MAX_UPLOAD_MB", config.Upload.MaxMB)
	config.RateLimit.RPS = getEnvFloatOrDefault("RATE_LIMIT_RPS", config.RateLimit.RPS)
	config.RateLimit.Burst = getEnvIntOrDefault("RATE_LIMIT_BURST", config.RateLimit.Burst)
	config.Cleaning.LenientNumbers = getEnvBoolOrDefault("COERCE_LENIENT_NUMBERS", config.Cleaning.LenientNumbers)
	config.Profiling.Enabled = getEnvBoolOrDefault("PPROF_ENABLED", config.Profiling.Enabled)
	config.Profiling.Port = getEnvOrDefault("ADMIN_PORT", config.Profiling.Port)
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)
	config.Logging.Dir = getEnvOrDefault("LOG_DIR", config.Logging.Dir)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadFile(path string, config *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if err := yaml.Unmarshal(raw, config); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("invalid YAML in %s: %v", path, err))
	}
	return nil
}

func applyServerEnv(s *ServerConfig) {
	s.Host = getEnvOrDefault("HOST", s.Host)
	s.Port = getEnvOrDefault("PORT", s.Port)
	s.GinMode = getEnvOrDefault("GIN_MODE", s.GinMode)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		s.CORSOrigins = splitList(origins)
	}
}

func applyDatabaseEnv(d *DatabaseConfig) {
	d.Driver = getEnvOrDefault("DB_DRIVER", d.Driver)
	d.URL = getEnvOrDefault("DATABASE_URL", d.URL)
}

func applyStorageEnv(s *StorageConfig) {
	s.Backend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", s.Backend))
	s.LocalDir = getEnvOrDefault("UPLOAD_DIR", s.LocalDir)
	s.URLTTL = getEnvDurationOrDefault("STORAGE_URL_TTL", s.URLTTL)
	s.Bucket = getEnvOrDefault("STORAGE_BUCKET", s.Bucket)
	s.Region = getEnvOrDefault("AWS_REGION", s.Region)
	s.Endpoint = getEnvOrDefault("S3_ENDPOINT", s.Endpoint)
	s.AccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", s.AccessKeyID)
	s.SecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", s.SecretAccessKey)
	s.GCSCredentialsFile = getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", s.GCSCredentialsFile)
	s.AzureAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", s.AzureAccount)
	s.AzureKey = getEnvOrDefault("AZURE_STORAGE_KEY", s.AzureKey)
	s.AzureContainer = getEnvOrDefault("AZURE_STORAGE_CONTAINER", s.AzureContainer)
	s.AzureEndpoint = getEnvOrDefault("AZURE_STORAGE_ENDPOINT", s.AzureEndpoint)
}

func applySessionEnv(s *SessionConfig) {
	s.TTL = getEnvDurationOrDefault("SESSION_TTL", s.TTL)
	s.JanitorSchedule = getEnvOrDefault("JANITOR_SCHEDULE", s.JanitorSchedule)
	s.CookieSecure = getEnvBoolOrDefault("COOKIE_SECURE", s.CookieSecure)
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	switch config.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported DB_DRIVER %q", config.Database.Driver))
	}
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if err := validateStorage(config.Storage); err != nil {
		return err
	}
	if config.Upload.MaxMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.RateLimit.RPS <= 0 || config.RateLimit.Burst < 1 {
		return errors.ConfigInvalid("rate limit must allow at least one request")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if _, err := cron.ParseStandard(config.Session.JanitorSchedule); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("invalid JANITOR_SCHEDULE %q: %v", config.Session.JanitorSchedule, err))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Backend {
	case BackendLocal:
		if s.LocalDir == "" {
			return errors.ConfigInvalid("UPLOAD_DIR is required for local storage")
		}
	case BackendS3:
		if s.Bucket == "" || s.Region == "" {
			return errors.ConfigInvalid("STORAGE_BUCKET and AWS_REGION are required for s3 storage")
		}
		if s.AccessKeyID == "" || s.SecretAccessKey == "" {
			return errors.ConfigInvalid("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for s3 storage")
		}
	case BackendGCS:
		if s.Bucket == "" {
			return errors.ConfigInvalid("STORAGE_BUCKET is required for gcs storage")
		}
	case BackendAzure:
		if s.AzureAccount == "" || s.AzureKey == "" || s.AzureContainer == "" {
			return errors.ConfigInvalid("AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_STORAGE_CONTAINER are required for azure storage")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported STORAGE_BACKEND %q", s.Backend))
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
