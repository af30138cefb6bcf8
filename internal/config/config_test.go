package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "gemini" {
		t.Errorf("expected default provider 'gemini', got %q", cfg.Provider)
	}
	if cfg.AssistantName != "Hasi" {
		t.Errorf("expected default assistant_name 'Hasi', got %q", cfg.AssistantName)
	}
	if cfg.Context.MaxMessages != 10 {
		t.Errorf("expected default context.max_messages 10, got %d", cfg.Context.MaxMessages)
	}
	if cfg.Storage.Backend != "json" {
		t.Errorf("expected default storage.backend 'json', got %q", cfg.Storage.Backend)
	}
	if !cfg.Storage.ResetOnCorrupt {
		t.Error("expected storage.reset_on_corrupt default true")
	}
	if cfg.Storage.Backup != nil {
		t.Error("expected no backup store by default")
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("expected default server.addr ':5000', got %q", cfg.Server.Addr)
	}
	if !cfg.Video.Enabled || cfg.Video.MaxResults != 3 {
		t.Errorf("unexpected video defaults: %+v", cfg.Video)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.AssistantName != "Hasi" {
		t.Errorf("expected default config, got assistant %q", cfg.AssistantName)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	data := `
provider: deepseek
model: deepseek-chat
assistant_name: Nova
request_timeout_sec: 15
storage:
  backend: sqlite
  path: /tmp/hasi.db
  reset_on_corrupt: false
  backup:
    backend: json
    path: /tmp/hasi-backup.json
context:
  max_messages: 6
server:
  addr: "127.0.0.1:8080"
video:
  enabled: false
log:
  level: debug
  format: json
providers:
  deepseek:
    api_key: "sk-test"
    base_url: "https://api.deepseek.com/v1"
`
	os.WriteFile(path, []byte(data), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "deepseek" {
		t.Errorf("expected provider 'deepseek', got %q", cfg.Provider)
	}
	if cfg.Model != "deepseek-chat" {
		t.Errorf("expected model 'deepseek-chat', got %q", cfg.Model)
	}
	if cfg.AssistantName != "Nova" {
		t.Errorf("expected assistant_name 'Nova', got %q", cfg.AssistantName)
	}
	if cfg.RequestTimeoutSec != 15 {
		t.Errorf("expected request_timeout_sec 15, got %d", cfg.RequestTimeoutSec)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "/tmp/hasi.db" {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Storage.ResetOnCorrupt {
		t.Error("expected reset_on_corrupt false from yaml")
	}
	if cfg.Storage.Backup == nil || cfg.Storage.Backup.Backend != "json" {
		t.Errorf("unexpected backup: %+v", cfg.Storage.Backup)
	}
	if cfg.Context.MaxMessages != 6 {
		t.Errorf("expected context.max_messages 6, got %d", cfg.Context.MaxMessages)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("expected server.addr from yaml, got %q", cfg.Server.Addr)
	}
	if cfg.Video.Enabled {
		t.Error("expected video.enabled false from yaml")
	}
	// Keys not in the file keep their defaults.
	if cfg.Video.MaxResults != 3 {
		t.Errorf("expected video.max_results default 3, got %d", cfg.Video.MaxResults)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log: %+v", cfg.Log)
	}
	pc := cfg.GetProviderConfig("deepseek")
	if pc.APIKey != "sk-test" {
		t.Errorf("expected api_key 'sk-test', got %q", pc.APIKey)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	os.WriteFile(path, []byte("{{invalid yaml"), 0644)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"backend", "storage:\n  backend: postgres\n", "storage.backend"},
		{"backup backend", "storage:\n  backup:\n    backend: s3\n", "storage.backup.backend"},
		{"log level", "log:\n  level: loud\n", "log.level"},
		{"log format", "log:\n  format: xml\n", "log.format"},
		{"context", "context:\n  max_messages: -1\n", "context.max_messages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			os.WriteFile(path, []byte(tt.yaml), 0644)

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	os.WriteFile(path, []byte("provider: openai\n"), 0644)

	t.Setenv("LLM_API_KEY", "env-key-123")
	t.Setenv("LLM_BASE_URL", "https://custom.api.com/v1")
	t.Setenv("LLM_MODEL", "custom-model")
	t.Setenv("HASI_PROVIDER", "deepseek")
	t.Setenv("HASI_STORE_BACKEND", "bolt")
	t.Setenv("HASI_STORE_PATH", "/data/hasi.bolt")
	t.Setenv("PORT", "8088")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "deepseek" {
		t.Errorf("HASI_PROVIDER should override, got %q", cfg.Provider)
	}
	if cfg.Model != "custom-model" {
		t.Errorf("LLM_MODEL should override, got %q", cfg.Model)
	}
	// Provider selection is applied first, so the generic key lands on deepseek.
	pc := cfg.GetProviderConfig("deepseek")
	if pc.APIKey != "env-key-123" {
		t.Errorf("LLM_API_KEY should set deepseek api_key, got %q", pc.APIKey)
	}
	if pc.BaseURL != "https://custom.api.com/v1" {
		t.Errorf("LLM_BASE_URL should set base_url, got %q", pc.BaseURL)
	}
	if cfg.Storage.Backend != "bolt" || cfg.Storage.Path != "/data/hasi.bolt" {
		t.Errorf("store env overrides not applied: %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":8088" {
		t.Errorf("PORT should set server.addr, got %q", cfg.Server.Addr)
	}
}

func TestLoad_VendorAPIKeys(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	os.WriteFile(path, []byte("provider: anthropic\n"), 0644)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("GOOGLE_API_KEY", "g-test")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, want := range map[string]string{
		"anthropic": "sk-ant-test",
		"gemini":    "g-test",
		"openai":    "sk-oai",
	} {
		if got := cfg.GetProviderConfig(name).APIKey; got != want {
			t.Errorf("%s api_key = %q, want %q", name, got, want)
		}
	}
}

func TestLoad_DotEnv(t *testing.T) {
	tmp := t.TempDir()
	os.WriteFile(filepath.Join(tmp, ".env"), []byte("HASI_MODEL=from-dotenv\n"), 0644)

	t.Chdir(tmp)
	t.Cleanup(func() { os.Unsetenv("HASI_MODEL") })

	cfg, err := Load(filepath.Join(tmp, "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "from-dotenv" {
		t.Errorf("expected model from .env, got %q", cfg.Model)
	}
}

func TestGetProviderConfig_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	pc := cfg.GetProviderConfig("nonexistent")
	if pc == nil {
		t.Fatal("expected non-nil provider config for unknown provider")
	}
	if pc.APIKey != "" {
		t.Error("expected empty api_key for unknown provider")
	}
}

func TestKnownProviders(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "anthropic", "deepseek"} {
		if !IsKnownProvider(name) {
			t.Errorf("expected %q in provider defaults", name)
		}
	}
	if KnownProviderBaseURLs["gemini"] == "" {
		t.Error("expected a base URL for gemini")
	}
	if _, ok := KnownProviderBaseURLs["openai"]; ok {
		t.Error("openai uses the SDK default base URL")
	}
}

func TestSaveProviderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hasi", "config.yaml")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("model: stale\nassistant_name: Nova\n"), 0644)

	if err := SaveProviderToFile(path, "gemini", ProviderConfig{APIKey: "g-key"}); err != nil {
		t.Fatalf("SaveProviderToFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["provider"] != "gemini" {
		t.Errorf("expected provider gemini, got %v", raw["provider"])
	}
	if _, ok := raw["model"]; ok {
		t.Error("expected stale model override to be removed")
	}
	if raw["assistant_name"] != "Nova" {
		t.Errorf("expected unrelated keys preserved, got %v", raw["assistant_name"])
	}
}
