// Package config manages application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey indicates the YouTube Data API key could not be read.
// The process must not start without it: the YouTube checker is useless
// without a key and every run would silently degrade.
var ErrMissingAPIKey = errors.New("config: youtube api key is missing")

// Config holds all application configuration for dead-link auditing runs.
type Config struct {
	// BaseURL is the root of the crawled website.
	BaseURL string `json:"base_url"`
	// APIKeyFile is the path of the file holding the YouTube Data API key.
	APIKeyFile string `json:"api_key_file"`
	// APIKey is the key read from APIKeyFile. Never serialized.
	APIKey string `json:"-"`

	// ProxyURL is the alternate egress used for hosts that cannot be
	// probed directly from the operating environment.
	ProxyURL string `json:"proxy_url"`

	// ReportPath is the markdown report file.
	ReportPath string `json:"report_path"`
	// LedgerPath is the checked-users ledger file.
	LedgerPath string `json:"ledger_path"`
	// LogPath is the debug log file. Empty disables file logging.
	LogPath string `json:"log_path"`

	// HTTPTimeout is the per-request timeout for all outgoing requests.
	HTTPTimeout time.Duration `json:"http_timeout"`
	// UserAgent is sent with every request to the crawled website.
	UserAgent string `json:"user_agent"`
	// RequestsPerSecond caps the polite request rate per domain.
	RequestsPerSecond float64 `json:"requests_per_second"`

	// TotalRegionCodes is the number of officially assignable ISO 3166-1
	// alpha-2 codes. A block-list of exactly this length means a video is
	// blocked everywhere. Configurable because the ISO list can grow.
	TotalRegionCodes int `json:"total_region_codes"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.icheckmovies.com",
		APIKeyFile:        "youtube_data_api.key",
		ProxyURL:          "http://proxy-nossl.antizapret.prostovpn.org:29976",
		ReportPath:        "result.md",
		LedgerPath:        "checked_users.txt",
		LogPath:           "find_dead.log",
		HTTPTimeout:       30 * time.Second,
		UserAgent:         "icm-dead-video-links/1.0",
		RequestsPerSecond: 2.0,
		TotalRegionCodes:  249,
	}
}

// Load loads configuration from the config file and environment variables,
// then reads the API key file. Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	cfg, err := LoadLocal()
	if err != nil {
		return nil, err
	}

	if err := cfg.loadAPIKey(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadLocal is Load without the API key requirement, for subcommands that
// only work with local files and never talk to the video hosts.
func LoadLocal() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from deadlinks.json in the current
// directory or the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"deadlinks.json",
		filepath.Join(os.Getenv("HOME"), ".config", "deadlinks", "deadlinks.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("ICMDEAD_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ICMDEAD_API_KEY_FILE"); v != "" {
		c.APIKeyFile = v
	}
	if v := os.Getenv("ICMDEAD_PROXY_URL"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("ICMDEAD_REPORT_PATH"); v != "" {
		c.ReportPath = v
	}
	if v := os.Getenv("ICMDEAD_LEDGER_PATH"); v != "" {
		c.LedgerPath = v
	}
	if v := os.Getenv("ICMDEAD_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("ICMDEAD_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("ICMDEAD_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTPTimeout = d
		}
	}
	if v := os.Getenv("ICMDEAD_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("ICMDEAD_TOTAL_REGION_CODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TotalRegionCodes = n
		}
	}
}

// loadAPIKey reads the API key file once. Absence is a fatal startup error.
func (c *Config) loadAPIKey() error {
	data, err := os.ReadFile(c.APIKeyFile)
	if err != nil {
		return fmt.Errorf("%w: create a file %q and put your Google API key inside "+
			"(see https://support.google.com/googleapi/answer/6158862): %v",
			ErrMissingAPIKey, c.APIKeyFile, err)
	}
	c.APIKey = strings.TrimSpace(string(data))
	if c.APIKey == "" {
		return fmt.Errorf("%w: %q is empty", ErrMissingAPIKey, c.APIKeyFile)
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if c.TotalRegionCodes <= 0 {
		return fmt.Errorf("total_region_codes must be positive")
	}
	if c.ReportPath == "" || c.LedgerPath == "" {
		return fmt.Errorf("report_path and ledger_path must not be empty")
	}
	return nil
}
