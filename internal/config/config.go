// Package config loads and validates the process configuration for the
// connectivity probe. Values come from SFD_* environment variables, with an
// optional .env file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting the binary needs. It is built once at startup
// and treated as read-only afterwards.
type Config struct {
	Addr string `validate:"required"`
	Env  string `validate:"omitempty,oneof=development staging production"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	S3Endpoint  string `validate:"required"`
	S3Region    string
	S3AccessKey string `validate:"required_with=S3SecretKey"`
	S3SecretKey string `validate:"required_with=S3AccessKey"`

	// DefaultBucket prefills the upload form and backs the readiness probe.
	DefaultBucket string
	DBDriver      string `validate:"oneof=mysql postgres sqlserver"`

	DBTestTimeout      time.Duration `validate:"gt=0"`
	UploadTimeout      time.Duration `validate:"gt=0"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`
	MaxUploadBytes     int64         `validate:"gte=0"`
	RateLimitPerMinute int           `validate:"gte=0,lte=10000"`

	// TrustedProxies lists peers (IPs or CIDRs) whose X-Forwarded-For and
	// X-Real-IP headers are believed when keying the rate limiter.
	TrustedProxies []string `validate:"dive,ip|cidr"`

	// ExposeErrors appends raw backend error text to status messages.
	ExposeErrors bool

	Version string
	Commit  string
}

// envNames maps struct fields to the variable that feeds them, so validation
// errors point operators at something they can actually set.
var envNames = map[string]string{
	"Addr":               "SFD_ADDR",
	"Env":                "SFD_ENV",
	"LogLevel":           "SFD_LOG_LEVEL",
	"LogFormat":          "SFD_LOG_FORMAT",
	"S3Endpoint":         "SFD_S3_ENDPOINT",
	"S3AccessKey":        "SFD_S3_ACCESS_KEY",
	"S3SecretKey":        "SFD_S3_SECRET_KEY",
	"DBDriver":           "SFD_DB_DRIVER",
	"DBTestTimeout":      "SFD_DB_TEST_TIMEOUT",
	"UploadTimeout":      "SFD_UPLOAD_TIMEOUT",
	"ShutdownTimeout":    "SFD_SHUTDOWN_TIMEOUT",
	"MaxUploadBytes":     "SFD_MAX_UPLOAD_BYTES",
	"RateLimitPerMinute": "SFD_RATE_LIMIT",
	"TrustedProxies":     "SFD_TRUSTED_PROXIES",
}

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):", len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, p)
	}
	return sb.String()
}

// Load reads envFile (if it exists) and the process environment.
// Variables already present in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var problems []string
	parseDuration := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: must be a valid duration (e.g. 10s, 5m), got %q", key, raw))
			return def
		}
		return d
	}
	parseInt := func(key string, def int64) int64 {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: must be an integer, got %q", key, raw))
			return def
		}
		return n
	}
	parseBool := func(key string) bool {
		raw := os.Getenv(key)
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: must be a boolean, got %q", key, raw))
			return false
		}
		return b
	}

	cfg := Config{
		Addr:               getenvDefault("SFD_ADDR", ":8080"),
		Env:                os.Getenv("SFD_ENV"),
		LogLevel:           getenvDefault("SFD_LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("SFD_LOG_FORMAT", "text"),
		S3Endpoint:         getenvDefault("SFD_S3_ENDPOINT", "https://s3.amazonaws.com"),
		S3Region:           os.Getenv("SFD_S3_REGION"),
		S3AccessKey:        os.Getenv("SFD_S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("SFD_S3_SECRET_KEY"),
		DefaultBucket:      os.Getenv("SFD_BUCKET"),
		DBDriver:           getenvDefault("SFD_DB_DRIVER", "mysql"),
		DBTestTimeout:      parseDuration("SFD_DB_TEST_TIMEOUT", 10*time.Second),
		UploadTimeout:      parseDuration("SFD_UPLOAD_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:    parseDuration("SFD_SHUTDOWN_TIMEOUT", 5*time.Second),
		MaxUploadBytes:     parseInt("SFD_MAX_UPLOAD_BYTES", 0),
		RateLimitPerMinute: int(parseInt("SFD_RATE_LIMIT", 30)),
		TrustedProxies:     splitList(os.Getenv("SFD_TRUSTED_PROXIES")),
		ExposeErrors:       parseBool("SFD_EXPOSE_ERRORS"),
		Version:            getenvDefault("SFD_VERSION", "dev"),
		Commit:             getenvDefault("SFD_COMMIT", "unknown"),
	}

	// Production always logs JSON.
	if cfg.Env == "production" {
		cfg.LogFormat = "json"
	}

	problems = append(problems, validate(cfg)...)
	if len(problems) > 0 {
		return Config{}, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

func validate(cfg Config) []string {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field, _, _ := strings.Cut(fe.Field(), "[")
		name := envNames[field]
		if name == "" {
			name = fe.Field()
		}
		out = append(out, fmt.Sprintf("%s: %s", name, describe(fe)))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required value not set"
	case "required_with":
		return "must be set together with " + envNames[fe.Param()]
	case "oneof":
		return fmt.Sprintf("must be one of: %s (got: %v)", strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "lte":
		return "must be at most " + fe.Param()
	case "ip|cidr":
		return fmt.Sprintf("entries must be an IP or CIDR (got: %v)", fe.Value())
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// splitList parses a comma-separated value, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
