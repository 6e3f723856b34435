package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = ".config.yaml"

// Defaults for the single admin account.
const (
	DefaultAdminEmail    = "test@test.com"
	DefaultAdminPassword = "password"
)

// DbConfig represents the configuration settings for the database.
type DbConfig struct {
	Path string `yaml:"path"`
}

// CookieConfig represents the session cookie settings. The first secret signs
// new cookies; every secret is accepted when reading one.
type CookieConfig struct {
	Name    string   `yaml:"name"`
	Secrets []string `yaml:"secrets"`
}

// AdminConfig holds the admin credentials. An empty PasswordHash means the
// default password is used.
type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// Config represents the configuration settings of the application.
type Config struct {
	Env      string       `yaml:"env"`
	Port     int          `yaml:"port"`
	LogLevel string       `yaml:"log_level"`
	CSRFKey  string       `yaml:"csrf_key"`
	Database DbConfig     `yaml:"database"`
	Cookie   CookieConfig `yaml:"cookie"`
	Admin    AdminConfig  `yaml:"admin"`
}

// Default returns the configuration used before any file or environment
// override is applied.
func Default() Config {
	return Config{
		Env:      "development",
		Port:     9090,
		LogLevel: "info",
		Database: DbConfig{Path: "./database/journal.db"},
		Cookie:   CookieConfig{Name: "journal-session"},
		Admin:    AdminConfig{Email: DefaultAdminEmail},
	}
}

// Production reports whether the app runs in production, which turns on
// secure cookies.
func (c Config) Production() bool {
	return c.Env == "production"
}

// LoadConfig loads the configuration from path, then applies environment
// overrides. A missing file is only an error when path is not DefaultPath.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("error unmarshalling %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("JOURNAL_ENV"); ok {
		c.Env = v
	}
	if v, ok := os.LookupEnv("JOURNAL_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JOURNAL_PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("JOURNAL_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("JOURNAL_DATABASE"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("JOURNAL_CSRF_KEY"); ok {
		c.CSRFKey = v
	}
	if v, ok := os.LookupEnv("JOURNAL_ADMIN_EMAIL"); ok {
		c.Admin.Email = v
	}
	if v, ok := os.LookupEnv("JOURNAL_ADMIN_PASSWORD_HASH"); ok {
		c.Admin.PasswordHash = v
	}
	if v, ok := os.LookupEnv("COOKIE_AUTH_NAME"); ok {
		c.Cookie.Name = v
	}
	if v, ok := os.LookupEnv("COOKIE_AUTH_SECRET"); ok {
		var secrets []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				secrets = append(secrets, s)
			}
		}
		c.Cookie.Secrets = secrets
	}
	return nil
}

// Validate checks the settings the app cannot start without.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie name required")
	}
	if len(c.Cookie.Secrets) == 0 {
		return errors.New("cookie secret required (set COOKIE_AUTH_SECRET)")
	}
	if c.Database.Path == "" {
		return errors.New("database path required")
	}
	if c.Admin.Email == "" {
		return errors.New("admin email required")
	}
	return nil
}
