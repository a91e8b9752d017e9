package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable read by the service.
const EnvPrefix = "COLLEGEPORTAL"

// Config captures the runtime configuration for the collegeportal web front-end.
type Config struct {
	AppPort        int
	Env            string
	Debug          bool
	LogLevel       string
	RequestTimeout time.Duration
	WriteTimeout   time.Duration
	CookieSecret   string
	SecureCookies  bool

	Auth    UpstreamConfig
	Content UpstreamConfig

	Upload      UploadConfig
	CollegesTTL time.Duration
	RateLimit   RateLimitConfig
	ObjectStore ObjectStoreConfig
	Rollbar     RollbarConfig
}

// UpstreamConfig points at one of the remote services.
type UpstreamConfig struct {
	BaseURL   string
	Endpoints map[string]string
}

// Endpoint returns the absolute URL for a named endpoint.
func (u UpstreamConfig) Endpoint(name string) string {
	return strings.TrimSuffix(u.BaseURL, "/") + u.Endpoints[name]
}

// UploadConfig controls video upload handling.
type UploadConfig struct {
	MaxBytes  int64
	FileField string
}

// RateLimitConfig bounds how often a client may post credentials.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
	TTL      time.Duration
}

// ObjectStoreConfig enables staging uploads in an S3-compatible bucket.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// Enabled reports whether uploads should be staged in object storage.
func (o ObjectStoreConfig) Enabled() bool {
	return strings.TrimSpace(o.Bucket) != ""
}

// RollbarConfig enables error reporting.
type RollbarConfig struct {
	Token       string
	CodeVersion string
}

// Auth and content endpoint names.
const (
	EndpointProfile      = "profile"
	EndpointLogin        = "login"
	EndpointLogout       = "logout"
	EndpointRegistration = "registration"
	EndpointCSRF         = "csrf"
	EndpointColleges     = "colleges"
	EndpointVideos       = "videos"
)

var defaults = map[string]any{
	"port":            3000,
	"env":             "dev",
	"debug":           false,
	"log_level":       "info",
	"request_timeout": 10 * time.Second,
	"write_timeout":   5 * time.Minute,
	"cookie_secret":   "",
	"secure_cookies":  false,

	"auth.base_url":               "http://localhost:8001",
	"auth.endpoints.profile":      "/api/v2/profile/profile/",
	"auth.endpoints.login":        "/api/v2/login/",
	"auth.endpoints.logout":       "/api/v2/logout/",
	"auth.endpoints.registration": "/api/v2/registration/",
	"auth.endpoints.csrf":         "/api/v2/csrf/",

	"content.base_url":           "http://localhost:8000",
	"content.endpoints.colleges": "/api/v1/collegelist/",
	"content.endpoints.videos":   "/api/v1/wathingvid/",

	"upload.max_bytes":  int64(100 << 20),
	"upload.file_field": "videos",
	"colleges_ttl":      30 * time.Second,

	"ratelimit.requests": 10,
	"ratelimit.window":   time.Minute,
	"ratelimit.burst":    5,
	"ratelimit.ttl":      10 * time.Minute,

	"objectstore.bucket":          "",
	"objectstore.region":          "us-east-1",
	"objectstore.endpoint":        "",
	"objectstore.public_base_url": "",

	"rollbar.token":        "",
	"rollbar.code_version": "dev",
}

// Load reads configuration from an optional .env file, an optional config
// file named by COLLEGEPORTAL_CONFIG and COLLEGEPORTAL_* environment
// variables, applying defaults suitable for local development.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		AppPort:        positiveInt(v.GetInt("port"), 3000),
		Env:            v.GetString("env"),
		Debug:          v.GetBool("debug"),
		LogLevel:       v.GetString("log_level"),
		RequestTimeout: positiveDuration(v.GetDuration("request_timeout"), 10*time.Second),
		WriteTimeout:   positiveDuration(v.GetDuration("write_timeout"), 5*time.Minute),
		CookieSecret:   v.GetString("cookie_secret"),
		SecureCookies:  v.GetBool("secure_cookies"),
		Auth: UpstreamConfig{
			BaseURL: v.GetString("auth.base_url"),
			Endpoints: map[string]string{
				EndpointProfile:      v.GetString("auth.endpoints.profile"),
				EndpointLogin:        v.GetString("auth.endpoints.login"),
				EndpointLogout:       v.GetString("auth.endpoints.logout"),
				EndpointRegistration: v.GetString("auth.endpoints.registration"),
				EndpointCSRF:         v.GetString("auth.endpoints.csrf"),
			},
		},
		Content: UpstreamConfig{
			BaseURL: v.GetString("content.base_url"),
			Endpoints: map[string]string{
				EndpointColleges: v.GetString("content.endpoints.colleges"),
				EndpointVideos:   v.GetString("content.endpoints.videos"),
			},
		},
		Upload: UploadConfig{
			MaxBytes:  positiveInt64(v.GetInt64("upload.max_bytes"), 100<<20),
			FileField: nonEmpty(v.GetString("upload.file_field"), "videos"),
		},
		CollegesTTL: v.GetDuration("colleges_ttl"),
		RateLimit: RateLimitConfig{
			Requests: positiveInt(v.GetInt("ratelimit.requests"), 10),
			Window:   positiveDuration(v.GetDuration("ratelimit.window"), time.Minute),
			Burst:    positiveInt(v.GetInt("ratelimit.burst"), 5),
			TTL:      positiveDuration(v.GetDuration("ratelimit.ttl"), 10*time.Minute),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:        v.GetString("objectstore.bucket"),
			Region:        v.GetString("objectstore.region"),
			Endpoint:      v.GetString("objectstore.endpoint"),
			PublicBaseURL: v.GetString("objectstore.public_base_url"),
		},
		Rollbar: RollbarConfig{
			Token:       v.GetString("rollbar.token"),
			CodeVersion: v.GetString("rollbar.code_version"),
		},
	}
	return cfg
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
