// Package config loads tool configuration from a TOML file with
// environment overrides. API credentials come from the environment (a
// .env file is honored) and never from the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Components receive the
// values they need explicitly; nothing reads configuration ambiently.
type Config struct {
	Vault    VaultConfig    `toml:"vault"`
	Format   FormatConfig   `toml:"format"`
	API      APIConfig      `toml:"api"`
	Schedule ScheduleConfig `toml:"schedule"`
}

// VaultConfig locates the Obsidian vault and the output directory inside
// it.
type VaultConfig struct {
	Path      string `toml:"path"`
	OutputDir string `toml:"output_dir"`
}

// FormatConfig holds the strftime patterns and the target time zone.
type FormatConfig struct {
	Filename string `toml:"filename"`
	Heading  string `toml:"heading"`
	Timezone string `toml:"timezone"`
}

// APIConfig holds X API credentials and the pay-per-use rate used for
// cost estimates. Credentials are env-only.
type APIConfig struct {
	Key               string  `toml:"-"`
	Secret            string  `toml:"-"`
	AccessToken       string  `toml:"-"`
	AccessTokenSecret string  `toml:"-"`
	CostPerRead       float64 `toml:"cost_per_read"`
}

// ScheduleConfig configures the daily export in --schedule mode.
type ScheduleConfig struct {
	Time string `toml:"time"` // "HH:MM", local to Format.Timezone
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Vault: VaultConfig{
			OutputDir: "x-posts",
		},
		Format: FormatConfig{
			Filename: "x-post-%Y-%m-%d",
			Heading:  "%Y-%m-%d %H:%M",
			Timezone: "Asia/Tokyo",
		},
		API: APIConfig{
			CostPerRead: 0.005,
		},
		Schedule: ScheduleConfig{
			Time: "07:00",
		},
	}
}

// Dir returns the platform-appropriate config directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "ximport"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file if present, then applies environment
// overrides. A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	// Best effort: a .env in the working directory supplies credentials.
	_ = godotenv.Load()

	cfg := Default()
	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.Key = getenv("X_API_KEY", c.API.Key)
	c.API.Secret = getenv("X_API_SECRET", c.API.Secret)
	c.API.AccessToken = getenv("X_ACCESS_TOKEN", c.API.AccessToken)
	c.API.AccessTokenSecret = getenv("X_ACCESS_TOKEN_SECRET", c.API.AccessTokenSecret)
	c.Vault.Path = getenv("OBSIDIAN_VAULT_PATH", c.Vault.Path)
	c.Vault.OutputDir = getenv("OBSIDIAN_OUTPUT_DIR", c.Vault.OutputDir)
	c.Format.Filename = getenv("FILENAME_FORMAT", c.Format.Filename)
	c.Format.Heading = getenv("HEADING_FORMAT", c.Format.Heading)
	if v := os.Getenv("COST_PER_READ"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.CostPerRead = rate
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks that credentials are set and the vault exists.
func (c *Config) Validate() error {
	missing := []string{}
	for _, v := range []struct{ name, val string }{
		{"X_API_KEY", c.API.Key},
		{"X_API_SECRET", c.API.Secret},
		{"X_ACCESS_TOKEN", c.API.AccessToken},
		{"X_ACCESS_TOKEN_SECRET", c.API.AccessTokenSecret},
	} {
		if v.val == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %v (see .env.example)", missing)
	}

	if c.Vault.Path == "" {
		return fmt.Errorf("OBSIDIAN_VAULT_PATH is not set")
	}
	if _, err := os.Stat(c.Vault.Path); err != nil {
		return fmt.Errorf("obsidian vault not found at %s: %w", c.Vault.Path, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Format.Timezone, err)
	}
	return nil
}

// OutputPath returns the directory Markdown and media are written to.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Vault.Path, c.Vault.OutputDir)
}

// CacheDir returns the day-cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.OutputPath(), ".cache")
}

// LogDir returns the directory for daily log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.OutputPath(), ".logs")
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Format.Timezone)
}
