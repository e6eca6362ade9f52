package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	for _, key := range []string{
		"TOOLSDK_PROJECT_ROOT", "TOOLSDK_STORE_DRIVER", "TOOLSDK_STORE_PATH",
		"TOOLSDK_GATEWAY_PORT", "TOOLSDK_LOG_LEVEL", "TOOLSDK_TOOLS_ENABLED",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return tmpDir
}

func writeConfig(t *testing.T, path string, cfg map[string]any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Gateway.Host != DefaultHost {
		t.Errorf("host = %q, want %q", cfg.Gateway.Host, DefaultHost)
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Gateway.Port, DefaultPort)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Errorf("store driver = %q, want %q", cfg.Store.Driver, StoreMemory)
	}
	if cfg.Tools.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("maxFileSize = %d, want %d", cfg.Tools.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.Store.FlushSchedule != DefaultFlushSchedule {
		t.Errorf("flushSchedule = %q, want %q", cfg.Store.FlushSchedule, DefaultFlushSchedule)
	}
	if cfg.Project.Root == "" {
		t.Error("project root should default to the working directory")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.MCP.Name != DefaultMCPName {
		t.Errorf("mcp name = %q, want %q", cfg.MCP.Name, DefaultMCPName)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("log level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	home := isolate(t)

	writeConfig(t, filepath.Join(home, ".toolsdk", "config.json"), map[string]any{
		"project": map[string]any{"root": "/srv/app", "id": "app"},
		"gateway": map[string]any{"port": 9000},
		"tools": map[string]any{
			"enabled":     []string{"search_project"},
			"browser":     "firefox",
			"maxFileSize": 2048,
		},
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Project.Root != "/srv/app" || cfg.Project.ID != "app" {
		t.Errorf("project = %+v", cfg.Project)
	}
	if cfg.Gateway.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Gateway.Port)
	}
	if cfg.Gateway.Host != DefaultHost {
		t.Errorf("host = %q, want default %q", cfg.Gateway.Host, DefaultHost)
	}
	if cfg.Tools.Browser != "firefox" {
		t.Errorf("browser = %q", cfg.Tools.Browser)
	}
	if cfg.Tools.MaxFileSize != 2048 {
		t.Errorf("maxFileSize = %d", cfg.Tools.MaxFileSize)
	}
	if !cfg.ToolEnabled("search_project") || cfg.ToolEnabled("open_in_browser") {
		t.Errorf("enabled = %v", cfg.Tools.Enabled)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".toolsdk", "config.json"), map[string]any{
		"gateway": map[string]any{"port": 9000},
	})

	t.Setenv("TOOLSDK_GATEWAY_PORT", "9100")
	t.Setenv("TOOLSDK_PROJECT_ROOT", "/env/root")
	t.Setenv("TOOLSDK_STORE_DRIVER", "sqlite")
	t.Setenv("TOOLSDK_STORE_PATH", "/tmp/env.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Gateway.Port != 9100 {
		t.Errorf("env should win over file: port = %d", cfg.Gateway.Port)
	}
	if cfg.Project.Root != "/env/root" {
		t.Errorf("root = %q", cfg.Project.Root)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.Path != "/tmp/env.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".toolsdk", "config.json")
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte("{not json"), 0644)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".toolsdk", "config.json"), map[string]any{
		"store":   map[string]any{"driver": "postgres", "flushSchedule": "every tuesday"},
		"log":     map[string]any{"level": "chatty"},
		"gateway": map[string]any{"port": 70000},
	})

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.driver", "store.flushSchedule", "log.level", "gateway.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.Project.Root = "/saved"
	cfg.Tools.Enabled = []string{"open_in_browser"}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Project.Root != "/saved" {
		t.Errorf("root = %q", loaded.Project.Root)
	}
	if len(loaded.Tools.Enabled) != 1 || loaded.Tools.Enabled[0] != "open_in_browser" {
		t.Errorf("enabled = %v", loaded.Tools.Enabled)
	}
}

func TestWatcherReloads(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".toolsdk", "config.json")
	writeConfig(t, path, map[string]any{"gateway": map[string]any{"port": 9000}})

	var port atomic.Int64
	w, err := NewWatcher(path, func(cfg *Config) { port.Store(int64(cfg.Gateway.Port)) }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, map[string]any{"gateway": map[string]any{"port": 9200}})

	deadline := time.Now().Add(5 * time.Second)
	for port.Load() != 9200 {
		if time.Now().After(deadline) {
			t.Fatalf("config was not reloaded, port = %d", port.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewWatcherValidation(t *testing.T) {
	if _, err := NewWatcher("config.json", nil); err == nil {
		t.Error("expected error without callback")
	}
	if _, err := NewWatcher(" ", func(*Config) {}); err == nil {
		t.Error("expected error without path")
	}
}
