// Package config handles the configuration directory, config file and
// environment settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename (googletasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (googletasks backend).
	TokenFile = "token.json"

	// EnvPrefix prefixes every environment override, e.g. TODOSYNC_BASE_URL.
	EnvPrefix = "TODOSYNC"
)

// Backends.
const (
	BackendREST        = "rest"
	BackendGoogleTasks = "googletasks"
)

// Defaults.
const (
	DefaultBaseURL  = "http://localhost:8000"
	DefaultTimeout  = 5 * time.Second
	DefaultTaskList = "@default"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the task service implementation.
	Backend string

	// BaseURL is the root of the REST task service.
	BaseURL string

	// Timeout bounds every remote round-trip.
	Timeout time.Duration

	// TaskList is the Google Tasks list used by the googletasks backend.
	TaskList string
}

// New creates a Config with defaults for the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todosync or $HOME/.config/todosync.
func New(configDir string) *Config {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:      dir,
		Backend:  BackendREST,
		BaseURL:  DefaultBaseURL,
		Timeout:  DefaultTimeout,
		TaskList: DefaultTaskList,
	}
}

// Load builds a Config from defaults, then config.yaml in the config
// directory, then a .env file in the working directory and TODOSYNC_*
// environment variables. Later sources win.
func Load(configDir string) (*Config, error) {
	cfg := New(configDir)

	// A missing .env is normal.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("task_list", cfg.TaskList)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if _, err := os.Stat(cfg.FilePath()); err == nil {
		v.SetConfigFile(cfg.FilePath())
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	cfg.Backend = v.GetString("backend")
	cfg.BaseURL = v.GetString("base_url")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.TaskList = v.GetString("task_list")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid base_url: %q", c.BaseURL)
		}
	case BackendGoogleTasks:
		if c.TaskList == "" {
			return fmt.Errorf("task_list required for backend %s", BackendGoogleTasks)
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}
