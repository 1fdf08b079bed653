// Package config loads process settings from an optional YAML file named by
// CONFIG_FILE and from the environment. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	HTTPPort string `yaml:"http_port"`
	AppEnv   string `yaml:"app_env"`

	// DatabaseURL selects the postgres backend; empty means JSON files in DataDir.
	DatabaseURL  string `yaml:"database_url"`
	DataDir      string `yaml:"data_dir"`
	// RedisAddr enables the template cache and publishing; optional.
	RedisAddr    string `yaml:"redis_addr"`
	PublishQueue string `yaml:"publish_queue"`

	// WorkerMetricsPort exposes /metrics from the publish worker when set.
	WorkerMetricsPort string `yaml:"worker_metrics_port"`

	JWTSecret     string        `yaml:"jwt_secret"`
	JWTExpiresIn  time.Duration `yaml:"jwt_expires_in"`
	AdminPassword string        `yaml:"admin_password"`

	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`

	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Sheets  SheetsConfig  `yaml:"sheets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
}

// StorageConfig selects where published artifacts go.
type StorageConfig struct {
	Provider  string       `yaml:"provider"`
	LocalRoot string       `yaml:"local_root"`
	GDrive    GoogleConfig `yaml:"gdrive"`
}

// GoogleConfig holds OAuth client credentials and a long-lived refresh token.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	FolderID     string `yaml:"folder_id"`
}

// SheetsConfig enables the Sheets API importer. Either APIKey or the OAuth
// triple must be set.
type SheetsConfig struct {
	APIKey string       `yaml:"api_key"`
	OAuth  GoogleConfig `yaml:"oauth"`
}

// Enabled reports whether any Sheets credential is configured.
func (s SheetsConfig) Enabled() bool {
	return s.APIKey != "" || s.OAuth.RefreshToken != ""
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		HTTPPort:      "8080",
		AppEnv:        EnvDevelopment,
		DataDir:       "./data",
		PublishQueue:  "menuforge:publish",
		JWTSecret:     devJWTSecret,
		JWTExpiresIn:  7 * 24 * time.Hour,
		AdminPassword: "admin123",
		CORSAllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8081",
		},
		RequestTimeout: 30 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Provider:  "localfs",
			LocalRoot: "./data/artifacts",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file from
// CONFIG_FILE when set, then environment variables.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	e := env(getenv)
	e.str("HTTP_PORT", &cfg.HTTPPort)
	e.str("APP_ENV", &cfg.AppEnv)
	e.str("DATABASE_URL", &cfg.DatabaseURL)
	e.str("DATA_DIR", &cfg.DataDir)
	e.str("REDIS_ADDR", &cfg.RedisAddr)
	e.str("PUBLISH_QUEUE_NAME", &cfg.PublishQueue)
	e.str("WORKER_METRICS_PORT", &cfg.WorkerMetricsPort)
	e.str("JWT_SECRET", &cfg.JWTSecret)
	e.str("ADMIN_PASSWORD", &cfg.AdminPassword)
	e.csv("CORS_ALLOWED_ORIGINS", &cfg.CORSAllowedOrigins)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)
	e.boolean("LOG_SOURCE", &cfg.Log.Source)

	e.str("STORAGE_PROVIDER", &cfg.Storage.Provider)
	e.str("STORAGE_LOCAL_ROOT", &cfg.Storage.LocalRoot)
	e.str("GDRIVE_CLIENT_ID", &cfg.Storage.GDrive.ClientID)
	e.str("GDRIVE_CLIENT_SECRET", &cfg.Storage.GDrive.ClientSecret)
	e.str("GDRIVE_REFRESH_TOKEN", &cfg.Storage.GDrive.RefreshToken)
	e.str("GDRIVE_FOLDER_ID", &cfg.Storage.GDrive.FolderID)

	e.str("GOOGLE_SHEETS_API_KEY", &cfg.Sheets.APIKey)
	e.str("GOOGLE_SHEETS_CLIENT_ID", &cfg.Sheets.OAuth.ClientID)
	e.str("GOOGLE_SHEETS_CLIENT_SECRET", &cfg.Sheets.OAuth.ClientSecret)
	e.str("GOOGLE_SHEETS_REFRESH_TOKEN", &cfg.Sheets.OAuth.RefreshToken)

	if err := e.duration("JWT_EXPIRES_IN", &cfg.JWTExpiresIn); err != nil {
		return Config{}, err
	}
	if err := e.duration("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings that would make the process unsafe or unusable.
func (c Config) Validate() error {
	var errs []error
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.DatabaseURL == "" && c.DataDir == "" {
		errs = append(errs, errors.New("either DATABASE_URL or DATA_DIR is required"))
	}
	switch c.Storage.Provider {
	case "localfs":
		if c.Storage.LocalRoot == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_ROOT is required for localfs"))
		}
	case "gdrive":
		g := c.Storage.GDrive
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			errs = append(errs, errors.New("GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN are required for gdrive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider: %s", c.Storage.Provider))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

// env reads trimmed variables; empty values leave the target untouched.
type env func(string) string

func (e env) get(key string) string {
	return strings.TrimSpace(e(key))
}

func (e env) str(key string, dst *string) {
	if v := e.get(key); v != "" {
		*dst = v
	}
}

func (e env) csv(key string, dst *[]string) {
	raw := e.get(key)
	if raw == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// boolean mirrors BoolEnv: 1, true, yes and on are true.
func (e env) boolean(key string, dst *bool) {
	v := strings.ToLower(e.get(key))
	if v == "" {
		return
	}
	*dst = v == "1" || v == "true" || v == "yes" || v == "on"
}

// duration accepts Go durations ("168h") and a day suffix ("7d").
func (e env) duration(key string, dst *time.Duration) error {
	v := e.get(key)
	if v == "" {
		return nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// ParseDuration extends time.ParseDuration with a whole-day unit "d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var n int
		if _, err := fmt.Sscanf(days, "%d", &n); err != nil || fmt.Sprint(n) != days {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
