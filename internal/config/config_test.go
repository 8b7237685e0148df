package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxConcurrentMessages = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=0")
	}

	cfg = Defaults()
	cfg.General.MaxConcurrentMessages = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=999")
	}

	cfg = Defaults()
	cfg.General.MaxConcurrentMessages = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxConcurrentMessages=1 should be valid: %v", err)
	}
	cfg.General.MaxConcurrentMessages = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxConcurrentMessages=100 should be valid: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Server.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_EmptyDefaultStore(t *testing.T) {
	cfg := Defaults()
	cfg.General.DefaultStore = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty defaultStore")
	}
}

func TestValidate_AnalyticsBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Analytics.MaxStores = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxStores=0")
	}

	cfg = Defaults()
	cfg.Analytics.MaxFAQKeys = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxFaqKeys=0")
	}

	cfg = Defaults()
	cfg.Analytics.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty dbPath")
	}
}

func TestValidate_FailoverChainReferences(t *testing.T) {
	cfg := Defaults()
	cfg.General.FailoverChain = []string{"ollama", "nonexistent"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown provider in failover chain")
	}

	cfg.General.FailoverChain = []string{"ollama"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("known provider chain should be valid: %v", err)
	}
}

func TestValidate_ProviderNeedsAPIBase(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["custom"] = ProviderConfig{Enabled: true}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled provider without apiBase")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.DefaultProvider = "test-provider"
	original.Providers["test-provider"] = ProviderConfig{Enabled: true, APIBase: "http://x"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.DefaultProvider != "test-provider" {
		t.Fatalf("expected 'test-provider', got %q", loaded.General.DefaultProvider)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"general": {
			"maxConcurrentMessages": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for maxConcurrentMessages=0")
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "general.defaultProvider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "ollama" {
		t.Fatalf("expected 'ollama', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.defaultStore", "store42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.General.DefaultStore != "store42" {
		t.Fatalf("expected 'store42', got %q", cfg.General.DefaultStore)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "metrics.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics.enabled=false")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "server.port", "8081"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("expected 8081, got %d", cfg.Server.Port)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxyz"
	cfg.Providers["openai"] = ProviderConfig{
		Enabled: true,
		APIKey:  "sk-1234567890abcdefghijklmnop",
	}

	sanitized := Sanitize(cfg)

	if sanitized.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	if sanitized.Providers["openai"].APIKey == cfg.Providers["openai"].APIKey {
		t.Fatal("API key should be masked")
	}
	// Verify original is untouched
	if cfg.Channels.Telegram.Token != "123456789:ABCdefGHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Channels.Telegram.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Channels.Telegram.Token)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"general.logLevel", "server.port", "analytics.dbPath", "metrics.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 456.0]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	if list[1] != "123" || list[3] != "456" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_InvalidJSON(t *testing.T) {
	var list FlexStringList
	err := json.Unmarshal([]byte(`not json`), &list)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8080}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "3000")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:3000"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_RETAILBOT_DB", "/tmp/test-analytics.db")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"analytics": {
			"dbPath": "${TEST_RETAILBOT_DB}",
			"maxStores": 100,
			"maxFaqKeys": 50
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analytics.DBPath != "/tmp/test-analytics.db" {
		t.Fatalf("expected dbPath '/tmp/test-analytics.db', got %q", cfg.Analytics.DBPath)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.General.DefaultStore != "store1" {
		t.Fatalf("default store should be 'store1', got %q", cfg.General.DefaultStore)
	}
	if cfg.General.DefaultProvider != "ollama" {
		t.Fatalf("default provider should be 'ollama', got %q", cfg.General.DefaultProvider)
	}
	if cfg.Analytics.MaxStores != 100 || cfg.Analytics.MaxFAQKeys != 50 {
		t.Fatalf("fallback bounds = %d/%d", cfg.Analytics.MaxStores, cfg.Analytics.MaxFAQKeys)
	}
}
