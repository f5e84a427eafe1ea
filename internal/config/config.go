package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"umlreg/internal/auth"
	"umlreg/internal/parser"
	"umlreg/internal/paths"
	"umlreg/internal/watcher"
	"umlreg/internal/webhooks"
)

// CurrentVersion is the config schema version written by this release.
const CurrentVersion = 1

// DirName is the per-project directory holding config, store and logs.
const DirName = paths.DirName

// Config represents the complete umlreg configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Parser      ParserConfig      `json:"parser" mapstructure:"parser"`
	Integration IntegrationConfig `json:"integration" mapstructure:"integration"`
	Terminology TerminologyConfig `json:"terminology" mapstructure:"terminology"`
	Registry    RegistryConfig    `json:"registry" mapstructure:"registry"`
	API         APIConfig         `json:"api" mapstructure:"api"`
	Webhooks    webhooks.Config   `json:"webhooks" mapstructure:"webhooks"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// ParserConfig selects and tunes the XMI parser
type ParserConfig struct {
	Version           string               `json:"version" mapstructure:"version"`
	Charset           string               `json:"charset" mapstructure:"charset"`
	StripInvalidChars bool                 `json:"stripInvalidChars" mapstructure:"stripInvalidChars"`
	NamespaceFixes    []parser.Replacement `json:"namespaceFixes" mapstructure:"namespaceFixes"`
}

// IntegrationConfig contains model integration settings
type IntegrationConfig struct {
	NamingChecks bool   `json:"namingChecks" mapstructure:"namingChecks"`
	SentinelType string `json:"sentinelType" mapstructure:"sentinelType"`
}

// TerminologyConfig selects the concept lookup service
type TerminologyConfig struct {
	Kind             string   `json:"kind" mapstructure:"kind"`
	VocabularyPath   string   `json:"vocabularyPath" mapstructure:"vocabularyPath"`
	Endpoint         string   `json:"endpoint" mapstructure:"endpoint"`
	TimeoutMs        int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	CacheSize        int      `json:"cacheSize" mapstructure:"cacheSize"`
	ActiveNamespaces []string `json:"activeNamespaces" mapstructure:"activeNamespaces"`
}

// RegistryConfig locates the model manifest and the metadata store
type RegistryConfig struct {
	ManifestPath string `json:"manifestPath" mapstructure:"manifestPath"`
	StorePath    string `json:"storePath" mapstructure:"storePath"`
	// HistoryLimit is the number of load attempts kept per model; 0 keeps all.
	HistoryLimit int `json:"historyLimit" mapstructure:"historyLimit"`
	// Watch makes serve reload models whose local files change.
	Watch watcher.Config `json:"watch" mapstructure:"watch"`
}

// APIConfig contains HTTP server settings
type APIConfig struct {
	Bind      string               `json:"bind" mapstructure:"bind"`
	Port      int                  `json:"port" mapstructure:"port"`
	TokenHash string               `json:"tokenHash,omitempty" mapstructure:"tokenHash"`
	RateLimit auth.RateLimitConfig `json:"rateLimit" mapstructure:"rateLimit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	API        string `json:"api,omitempty" mapstructure:"api"`
	Loader     string `json:"loader,omitempty" mapstructure:"loader"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// Terminology service kinds
const (
	TerminologyNone = "none"
	TerminologyFile = "file"
	TerminologyHTTP = "http"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Parser: ParserConfig{
			Version:        string(parser.DefaultVersion),
			Charset:        parser.CharsetAuto,
			NamespaceFixes: []parser.Replacement{},
		},
		Integration: IntegrationConfig{
			NamingChecks: true,
			SentinelType: "NONE",
		},
		Terminology: TerminologyConfig{
			Kind:             TerminologyNone,
			TimeoutMs:        5000,
			CacheSize:        4096,
			ActiveNamespaces: []string{},
		},
		Registry: RegistryConfig{
			ManifestPath: "MODELS.toml",
			StorePath:    filepath.Join(DirName, "registry.db"),
			HistoryLimit: 50,
			Watch:        watcher.DefaultConfig(),
		},
		API: APIConfig{
			Bind:      "localhost",
			Port:      9130,
			RateLimit: auth.DefaultRateLimitConfig(),
		},
		Webhooks: webhooks.DefaultConfig(),
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from .umlreg/config.json under root.
// UMLREG_<SECTION>_<KEY> environment variables override file values.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, DirName))
	v.SetEnvPrefix("UMLREG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("parser.version", d.Parser.Version)
	v.SetDefault("parser.charset", d.Parser.Charset)
	v.SetDefault("parser.stripInvalidChars", d.Parser.StripInvalidChars)
	v.SetDefault("parser.namespaceFixes", d.Parser.NamespaceFixes)
	v.SetDefault("integration.namingChecks", d.Integration.NamingChecks)
	v.SetDefault("integration.sentinelType", d.Integration.SentinelType)
	v.SetDefault("terminology.kind", d.Terminology.Kind)
	v.SetDefault("terminology.vocabularyPath", d.Terminology.VocabularyPath)
	v.SetDefault("terminology.endpoint", d.Terminology.Endpoint)
	v.SetDefault("terminology.timeoutMs", d.Terminology.TimeoutMs)
	v.SetDefault("terminology.cacheSize", d.Terminology.CacheSize)
	v.SetDefault("terminology.activeNamespaces", d.Terminology.ActiveNamespaces)
	v.SetDefault("registry.manifestPath", d.Registry.ManifestPath)
	v.SetDefault("registry.storePath", d.Registry.StorePath)
	v.SetDefault("registry.historyLimit", d.Registry.HistoryLimit)
	v.SetDefault("registry.watch.enabled", d.Registry.Watch.Enabled)
	v.SetDefault("registry.watch.pollIntervalMs", d.Registry.Watch.PollIntervalMs)
	v.SetDefault("registry.watch.debounceMs", d.Registry.Watch.DebounceMs)
	v.SetDefault("api.bind", d.API.Bind)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.tokenHash", d.API.TokenHash)
	v.SetDefault("api.rateLimit.enabled", d.API.RateLimit.Enabled)
	v.SetDefault("api.rateLimit.perMinute", d.API.RateLimit.PerMinute)
	v.SetDefault("api.rateLimit.burstSize", d.API.RateLimit.BurstSize)
	v.SetDefault("api.rateLimit.cleanupInterval", d.API.RateLimit.CleanupInterval)
	v.SetDefault("webhooks.endpoints", d.Webhooks.Endpoints)
	v.SetDefault("webhooks.timeoutMs", d.Webhooks.TimeoutMs)
	v.SetDefault("webhooks.maxAttempts", d.Webhooks.MaxAttempts)
	v.SetDefault("webhooks.retryDelayMs", d.Webhooks.RetryDelayMs)
	v.SetDefault("webhooks.queueSize", d.Webhooks.QueueSize)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.api", d.Logging.API)
	v.SetDefault("logging.loader", d.Logging.Loader)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Path returns the config file location under root.
func Path(root string) string {
	return filepath.Join(root, DirName, "config.json")
}

// Save writes the configuration to .umlreg/config.json
func (c *Config) Save(root string) error {
	if err := os.MkdirAll(filepath.Join(root, DirName), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(root), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if _, err := parser.ParseVersion(c.Parser.Version); err != nil {
		return &ConfigError{Field: "parser.version", Message: err.Error()}
	}
	for i, fix := range c.Parser.NamespaceFixes {
		if fix.Old == "" {
			return &ConfigError{Field: fmt.Sprintf("parser.namespaceFixes[%d].old", i), Message: "must not be empty"}
		}
	}

	switch c.Terminology.Kind {
	case "", TerminologyNone:
	case TerminologyFile:
		if c.Terminology.VocabularyPath == "" {
			return &ConfigError{Field: "terminology.vocabularyPath", Message: "required for kind \"file\""}
		}
	case TerminologyHTTP:
		if c.Terminology.Endpoint == "" {
			return &ConfigError{Field: "terminology.endpoint", Message: "required for kind \"http\""}
		}
	default:
		return &ConfigError{Field: "terminology.kind", Message: fmt.Sprintf("unknown kind %q (want none, file or http)", c.Terminology.Kind)}
	}
	if c.Terminology.CacheSize < 0 {
		return &ConfigError{Field: "terminology.cacheSize", Message: "must not be negative"}
	}

	if c.Registry.HistoryLimit < 0 {
		return &ConfigError{Field: "registry.historyLimit", Message: "must not be negative"}
	}
	if c.Registry.Watch.Enabled && c.Registry.Watch.PollIntervalMs <= 0 {
		return &ConfigError{Field: "registry.watch.pollIntervalMs", Message: "must be positive when watching"}
	}
	if c.Registry.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "registry.watch.debounceMs", Message: "must not be negative"}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return &ConfigError{Field: "api.port", Message: "must be between 1 and 65535"}
	}
	if err := c.Webhooks.Validate(); err != nil {
		return &ConfigError{Field: "webhooks", Message: err.Error()}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
