package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is loaded from an optional YAML file and overridden by environment variables.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Scripts  ScriptsConfig  `yaml:"scripts"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig identifies the application on disk.
type AppConfig struct {
	// ID is the application identifier; platform data directories are
	// resolved as <platform dir>/<ID>.
	ID string `yaml:"id"`

	// DataDir overrides the resolved appData directory when set.
	DataDir string `yaml:"data_dir"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	// Filename is the database file inside the appData directory.
	Filename string `yaml:"filename"`

	// Driver selects the database/sql driver: "sqlite3" (mattn/go-sqlite3)
	// or "sqlite" (modernc.org/sqlite).
	Driver string `yaml:"driver"`

	// CacheSize is the value passed to PRAGMA cache_size. Negative values are
	// KiB, positive values are pages.
	CacheSize int `yaml:"cache_size"`

	// BusyTimeout is how long SQLite waits on a lock held by an external
	// reader or writer (milliseconds). Zero leaves the engine default.
	BusyTimeout int `yaml:"busy_timeout"`
}

// ServerConfig contains the loopback IPC server settings.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ReadTimeout    int      `yaml:"read_timeout"`
	WriteTimeout   int      `yaml:"write_timeout"`
}

// AuthConfig contains password hashing and token settings.
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`

	// TokenSecretFile holds the HMAC key for issued tokens. Relative paths
	// are resolved against the appData directory. The key is generated on
	// first use.
	TokenSecretFile string `yaml:"token_secret_file"`

	// TokenTTL is the token lifetime in minutes. Zero issues tokens without
	// an expiry.
	TokenTTL int `yaml:"token_ttl"`
}

// ScriptsConfig locates the external maintenance scripts.
type ScriptsConfig struct {
	// ProjectRoot contains src/scripts/. Defaults to the executable's directory.
	ProjectRoot string `yaml:"project_root"`

	// Node is the Node.js binary used to run scripts.
	Node string `yaml:"node"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration in three layers:
//  1. Default values
//  2. YAML file values, when path is non-empty
//  3. Environment variables (DASH_SECTION_KEY)
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			ID: "com.noiddea.dash",
		},
		Database: DatabaseConfig{
			Filename:  "database.db",
			Driver:    "sqlite3",
			CacheSize: -8192,
		},
		Server: ServerConfig{
			Listen:       "127.0.0.1:4317",
			ReadTimeout:  30,
			WriteTimeout: 0,
		},
		Auth: AuthConfig{
			BcryptCost:      12,
			TokenSecretFile: "token.key",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DASH_APP_ID"); v != "" {
		cfg.App.ID = v
	}
	if v := os.Getenv("DASH_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := os.Getenv("DASH_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DASH_DATABASE_BUSY_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Database.BusyTimeout = ms
		}
	}
	if v := os.Getenv("DASH_SERVER_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("DASH_SCRIPTS_PROJECT_ROOT"); v != "" {
		cfg.Scripts.ProjectRoot = v
	}
	if v := os.Getenv("DASH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DASH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.App.ID == "" {
		errs = append(errs, "app.id is required")
	}
	if strings.ContainsAny(c.App.ID, `/\`) {
		errs = append(errs, "app.id must not contain path separators")
	}

	if c.Database.Filename == "" {
		errs = append(errs, "database.filename is required")
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite3 or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.Server.Listen == "" {
		errs = append(errs, "server.listen is required")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, "auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Auth.TokenTTL < 0 {
		errs = append(errs, "auth.token_ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetTokenTTL returns the token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTL) * time.Minute
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration. Zero means
// no timeout; long transactions are allowed to finish.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}
