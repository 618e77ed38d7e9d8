// Package config provides configuration management for the leapconsole CLI.
//
// Settings are layered with koanf: built-in defaults, then leapconsole.yaml
// (searched upward from the working directory), then LEAPCONSOLE_ environment
// variables, then command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapconsole/internal/console"
)

// Config holds all CLI configuration options.
type Config struct {
	API          APIConfig           `koanf:"api"`
	Auth         AuthConfig          `koanf:"auth"`
	Server       ServerConfig        `koanf:"server"`
	Web          WebConfig           `koanf:"web"`
	Defaults     []DefaultRuleConfig `koanf:"defaults"`
	DownloadDir  string              `koanf:"download_dir"`
	OutputFormat string              `koanf:"output"`
	Verbose      bool                `koanf:"verbose"`
}

// APIConfig locates the REST backend the console talks to.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// AuthConfig configures code persistence and auto-login.
type AuthConfig struct {
	// Code is verified before scripted commands run.
	Code           string        `koanf:"code"`
	CodeStore      string        `koanf:"code_store"`
	CodePath       string        `koanf:"code_path"`
	AutoLoginDelay time.Duration `koanf:"auto_login_delay"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	Port           int            `koanf:"port"`
	Database       DatabaseConfig `koanf:"database"`
	RequireSession bool           `koanf:"require_session"`
	SessionSecret  string         `koanf:"session_secret"`
	SecureCookies  bool           `koanf:"secure_cookies"`
	RowLimit       int            `koanf:"row_limit"`
	CodeTTL        time.Duration  `koanf:"code_ttl"`
	AccessCode     string         `koanf:"access_code"`
	PurgeInterval  time.Duration  `koanf:"purge_interval"`
	Blob           BlobConfig     `koanf:"blob"`
}

// DatabaseConfig selects the backend database.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// BlobConfig selects where file contents live: "db" keeps them inline,
// "s3" offloads them to a bucket.
type BlobConfig struct {
	Backend string   `koanf:"backend"`
	S3      S3Config `koanf:"s3"`
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Endpoint        string `koanf:"endpoint"`
	Bucket          string `koanf:"bucket"`
	AccessKey       string `koanf:"access_key"`
	SecretKey       string `koanf:"secret_key"`
	Region          string `koanf:"region"`
	UseSSL          bool   `koanf:"use_ssl"`
	Prefix          string `koanf:"prefix"`
	UnsignedPayload bool   `koanf:"unsigned_payload"`
}

// WebConfig configures the browser console.
type WebConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	SecureCookies bool   `koanf:"secure_cookies"`
	AutoOpen      bool   `koanf:"auto_open"`
}

// DefaultRuleConfig is a create-form default rule from the config file.
// Rules from the file are evaluated before the built-in ones.
type DefaultRuleConfig struct {
	Name  string   `koanf:"name"`
	Match []string `koanf:"match"`
	Value any      `koanf:"value"`
}

// Blob backends.
const (
	BlobBackendDB = "db"
	BlobBackendS3 = "s3"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:5000/api"
	DefaultTimeout        = 30 * time.Second
	DefaultCodeStore      = "file"
	DefaultAutoLoginDelay = console.DefaultAutoLoginDelay
	DefaultServerPort     = 5000
	DefaultDriver         = "sqlite"
	DefaultDSN            = "leapconsole.db"
	DefaultRowLimit       = 1000
	DefaultCodeTTL        = 24 * time.Hour
	DefaultPurgeInterval  = time.Hour
	DefaultWebPort        = 8080
	DefaultDownloadDir    = "."
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Rules returns the configured default rules followed by the built-in ones.
func (c *Config) Rules() []console.DefaultRule {
	if len(c.Defaults) == 0 {
		return console.DefaultRules
	}
	rules := make([]console.DefaultRule, 0, len(c.Defaults)+len(console.DefaultRules))
	for _, d := range c.Defaults {
		rules = append(rules, console.DefaultRule{Name: d.Name, Substrings: d.Match, Value: d.Value})
	}
	return append(rules, console.DefaultRules...)
}
