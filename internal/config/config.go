package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Config holds the solrq API configuration.
type Config struct {
	HTTP     HTTPConfig          `yaml:"http"`
	Solr     SolrConfig          `yaml:"solr"`
	Search   SearchConfig        `yaml:"search"`
	Database DatabaseConfig      `yaml:"database"`
	Classes  []setup.Declaration `yaml:"classes"`
	Auth     AuthConfig          `yaml:"auth"`
	Logging  LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SolrConfig holds the Solr connection settings.
type SolrConfig struct {
	URL               string  `yaml:"url"`
	Core              string  `yaml:"core"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	Gzip              bool    `yaml:"gzip"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultPerPage int    `yaml:"default_per_page"`
	HighlightPre   string `yaml:"highlight_pre"`
	HighlightPost  string `yaml:"highlight_post"`
}

// DatabaseConfig holds the data store that instances load from.
type DatabaseConfig struct {
	Driver           string            `yaml:"driver"` // redis, sqlite (default: redis)
	Addrs            []string          `yaml:"addrs"`
	Password         string            `yaml:"password"`
	DSN              string            `yaml:"dsn"`
	KeyPrefix        string            `yaml:"key_prefix"`
	Tables           map[string]string `yaml:"tables"` // class -> sqlite table, default lower-cased class
	ReadinessTimeout int               `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the YAML file at configPath.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Solr.TimeoutSec <= 0 {
		c.Solr.TimeoutSec = 10
	}
	if c.Solr.RequestsPerSecond > 0 && c.Solr.Burst <= 0 {
		c.Solr.Burst = int(c.Solr.RequestsPerSecond)
		if c.Solr.Burst < 1 {
			c.Solr.Burst = 1
		}
	}
	if c.Search.DefaultPerPage <= 0 {
		c.Search.DefaultPerPage = 30
	}
	if c.Search.HighlightPre == "" && c.Search.HighlightPost == "" {
		c.Search.HighlightPre = "<em>"
		c.Search.HighlightPost = "</em>"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "solrq:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Solr.URL == "" {
		return fmt.Errorf("solr.url is required")
	}
	if c.Solr.Core == "" {
		return fmt.Errorf("solr.core is required")
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"sqlite\", got %q", c.Database.Driver)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class must be declared")
	}
	seen := make(map[string]struct{}, len(c.Classes))
	for i, d := range c.Classes {
		if d.Class == "" {
			return fmt.Errorf("classes[%d].class is required", i)
		}
		if _, dup := seen[d.Class]; dup {
			return fmt.Errorf("class %q declared twice", d.Class)
		}
		seen[d.Class] = struct{}{}
	}
	return nil
}

// Registry builds the declared class setups, attaching accessors from fn.
func (c *Config) Registry(fn setup.AccessorFunc) (*setup.Registry, error) {
	reg := setup.NewRegistry()
	if err := setup.RegisterAll(reg, c.Classes, fn); err != nil {
		return nil, fmt.Errorf("classes: %w", err)
	}
	return reg, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
