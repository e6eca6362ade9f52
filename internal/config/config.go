package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 18790
	DefaultStoreDriver    = StoreMemory
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLogMaxSizeMB   = 20
	DefaultLogMaxBackups  = 3
	DefaultBrowser        = "default"
	DefaultMCPName        = "toolsdk"
	DefaultMCPVersion     = "dev"
	DefaultMaxFileSize    = 10 << 20
	DefaultMaxConcurrency = 4
	DefaultFlushSchedule  = "@every 1m"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	envPrefix = "TOOLSDK"
)

type Config struct {
	Project ProjectConfig `json:"project"`
	Store   StoreConfig   `json:"store"`
	Gateway GatewayConfig `json:"gateway"`
	Log     LogConfig     `json:"log"`
	Tools   ToolsConfig   `json:"tools"`
	MCP     MCPConfig     `json:"mcp"`
}

type ProjectConfig struct {
	Root string `json:"root"`
	ID   string `json:"id,omitempty"`
}

type StoreConfig struct {
	Driver string `json:"driver"` // "memory" (default) or "sqlite"
	Path   string `json:"path,omitempty"`
	// FlushSchedule is a cron spec for persisting tool usage; empty
	// disables periodic flushing.
	FlushSchedule string `json:"flushSchedule,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // "console" or "json"
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMB,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty"`
}

type ToolsConfig struct {
	// ConfigDir holds per-tool configuration files.
	ConfigDir      string   `json:"configDir,omitempty"`
	Enabled        []string `json:"enabled,omitempty"`
	Browser        string   `json:"browser"`
	MaxFileSize    int64    `json:"maxFileSize"`
	MaxConcurrency int      `json:"maxConcurrency"`
}

type MCPConfig struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func DefaultConfig() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Project: ProjectConfig{Root: cwd},
		Store: StoreConfig{
			Driver:        DefaultStoreDriver,
			Path:          filepath.Join(ConfigDir(), "toolsdk.db"),
			FlushSchedule: DefaultFlushSchedule,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
		Tools: ToolsConfig{
			ConfigDir:      filepath.Join(ConfigDir(), "tools"),
			Browser:        DefaultBrowser,
			MaxFileSize:    DefaultMaxFileSize,
			MaxConcurrency: DefaultMaxConcurrency,
		},
		MCP: MCPConfig{
			Name:    DefaultMCPName,
			Version: DefaultMCPVersion,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".toolsdk")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// newViper returns a viper instance seeded with the defaults so that every
// key is known to the TOOLSDK_* environment lookup.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatten(DefaultConfig())
	if err != nil {
		return nil, err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v, nil
}

func flatten(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := strings.ToLower(k)
			if prefix != "" {
				key = prefix + "." + key
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			out[key] = v
		}
	}
	walk("", nested)
	// Keys that are empty by default still need registering for env lookup.
	for key, zero := range map[string]any{"project.id": "", "log.file": "", "tools.enabled": []string{}} {
		if _, ok := out[key]; !ok {
			out[key] = zero
		}
	}
	return out, nil
}

// LoadConfig reads ConfigPath and applies TOOLSDK_* overrides, e.g.
// TOOLSDK_PROJECT_ROOT or TOOLSDK_GATEWAY_PORT. A missing file yields the
// defaults.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom is LoadConfig for an explicit file.
func LoadConfigFrom(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = defaults.Project.Root
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	if cfg.Tools.Browser == "" {
		cfg.Tools.Browser = DefaultBrowser
	}
	if cfg.Tools.MaxFileSize <= 0 {
		cfg.Tools.MaxFileSize = DefaultMaxFileSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the host cannot act on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if spec := strings.TrimSpace(c.Store.FlushSchedule); spec != "" {
		if _, err := rcron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("store.flushSchedule: %w", err))
		}
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", c.Gateway.Port))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if c.Tools.MaxConcurrency < 0 {
		errs = append(errs, errors.New("tools.maxConcurrency must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ToolEnabled reports whether name is enabled. An empty list enables every
// tool.
func (c *Config) ToolEnabled(name string) bool {
	if len(c.Tools.Enabled) == 0 {
		return true
	}
	for _, n := range c.Tools.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

func SaveConfig(cfg *Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes cfg as indented JSON to path.
func SaveConfigTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
