package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DefaultPort                 = "5000"
	DefaultAPIKeyHeader         = "singora-API-Key"
	DefaultMaxUploadBytes int64 = 16 * 1024 * 1024
	DefaultMaxPixels            = 50_000_000
	DefaultExportWorkers        = 4
	DefaultRequestTimeout       = 120 * time.Second
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
)

type Config struct {
	Bind               string
	DBDSN              string
	StagingDir         string
	MaxUploadBytes     int64
	MaxPixels          int
	ExportWorkers      int
	RequestTimeout     time.Duration
	AuthMode           AuthMode
	APIKey             string
	APIKeyHeader       string
	APIKeysFile        string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFile            string
	SwaggerUIPath      string
	OpenAPIPath        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Bind:               getenv("SINGORA_BIND", ":"+getenv("PORT", DefaultPort)),
		StagingDir:         os.Getenv("SINGORA_STAGING_DIR"),
		MaxUploadBytes:     getInt64("SINGORA_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxPixels:          getInt("SINGORA_MAX_PIXELS", DefaultMaxPixels),
		ExportWorkers:      getInt("SINGORA_EXPORT_WORKERS", DefaultExportWorkers),
		RequestTimeout:     getDuration("SINGORA_REQUEST_TIMEOUT", DefaultRequestTimeout),
		AuthMode:           AuthMode(getenv("SINGORA_AUTH_MODE", string(AuthAPIKey))),
		APIKey:             strings.TrimSpace(os.Getenv("API_KEY")),
		APIKeyHeader:       getenv("SINGORA_API_KEY_HEADER", DefaultAPIKeyHeader),
		APIKeysFile:        os.Getenv("SINGORA_API_KEYS_FILE"),
		CORSAllowedOrigins: splitAndTrim(getenv("SINGORA_CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           os.Getenv("SINGORA_LOG_LEVEL"),
		LogFile:            os.Getenv("SINGORA_LOG_FILE"),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
	}

	cfg.DBDSN = DSN()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthNone:
	case AuthAPIKey:
		if c.APIKey == "" && c.APIKeysFile == "" {
			return fmt.Errorf("API_KEY or SINGORA_API_KEYS_FILE is required when SINGORA_AUTH_MODE=apikey")
		}
		if strings.TrimSpace(c.APIKeyHeader) == "" {
			return fmt.Errorf("SINGORA_API_KEY_HEADER must not be empty")
		}
	default:
		return fmt.Errorf("invalid SINGORA_AUTH_MODE: %s", c.AuthMode)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("SINGORA_MAX_UPLOAD_BYTES must be positive")
	}
	if c.ExportWorkers <= 0 {
		return fmt.Errorf("SINGORA_EXPORT_WORKERS must be positive")
	}
	return nil
}

// DSN is SINGORA_DB_DSN, or a DSN built from the MYSQL_* variables.
func DSN() string {
	if dsn := os.Getenv("SINGORA_DB_DSN"); dsn != "" {
		return dsn
	}
	return mysqlDSN(
		getenv("MYSQL_HOST", "localhost"),
		getenv("MYSQL_USER", "root"),
		getenv("MYSQL_PASSWORD", "root"),
		getenv("MYSQL_DATABASE", "singora_db"),
	)
}

func mysqlDSN(host, user, password, database string) string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = host
	if !strings.Contains(host, ":") {
		mc.Addr = host + ":3306"
	}
	mc.User = user
	mc.Passwd = password
	mc.DBName = database
	mc.ParseTime = true
	mc.MultiStatements = true
	return mc.FormatDSN()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
