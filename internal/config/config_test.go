package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SLACK_SIGNING_SECRET", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
	if cfg.Server.LogLevel != DefaultServerLogLevel {
		t.Errorf("Expected default log level %s, got %s", DefaultServerLogLevel, cfg.Server.LogLevel)
	}
	if cfg.Slack.CommandsPath != DefaultSlackCommandsPath {
		t.Errorf("Expected default commands path %s, got %s", DefaultSlackCommandsPath, cfg.Slack.CommandsPath)
	}
	if cfg.Sources.LoadTimeout != DefaultSourcesLoadTimeout {
		t.Errorf("Expected default load timeout %s, got %s", DefaultSourcesLoadTimeout, cfg.Sources.LoadTimeout)
	}
	if cfg.Sources.Google.RequestTimeout != DefaultGoogleRequestTimeout {
		t.Errorf("Expected default google request timeout %s, got %s", DefaultGoogleRequestTimeout, cfg.Sources.Google.RequestTimeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("Expected cache to be enabled by default")
	}
	if cfg.Cache.LockMaxRetry != DefaultCacheLockMaxRetry {
		t.Errorf("Expected default cache lock max retry %d, got %d", DefaultCacheLockMaxRetry, cfg.Cache.LockMaxRetry)
	}
	if cfg.Reload.Schedule != "" {
		t.Errorf("Expected reload to be disabled by default, got %q", cfg.Reload.Schedule)
	}
	if cfg.Daemon.ShutdownTimeout != DefaultDaemonShutdownTimeout {
		t.Errorf("Expected default daemon shutdown timeout %s, got %s", DefaultDaemonShutdownTimeout, cfg.Daemon.ShutdownTimeout)
	}
}

func TestLoadFromFileWithInlineDefinition(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
server:
  port: 9090
slack:
  signing_secret: shh
definition:
  sheets:
    id_abbrev:
      columns: [col1, col2, col3]
      mock_rows:
        - [x, y, z]
        - ["", "", ""]
  commands:
    abbrev:
      sheet: id_abbrev
      lookup_column: col1
      slack_token: tok
      format:
        title: "Results for %term%"
        result: "*%term%* is %col3%"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", configPath, "")

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Slack.SigningSecret != "shh" {
		t.Errorf("Expected signing secret from file, got %q", cfg.Slack.SigningSecret)
	}

	def, err := LoadDefinition(cfg)
	if err != nil {
		t.Fatalf("LoadDefinition failed: %v", err)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	sheet := def.Sheets["id_abbrev"]
	if len(sheet.Columns) != 3 || sheet.Columns[2] != "col3" {
		t.Errorf("unexpected columns: %v", sheet.Columns)
	}
	if len(sheet.MockRows) != 2 || sheet.MockRows[0][2] != "z" {
		t.Errorf("unexpected mock rows: %v", sheet.MockRows)
	}
	cmdDef := def.Commands["abbrev"]
	if cmdDef.Format.Result != "*%term%* is %col3%" {
		t.Errorf("unexpected result format: %q", cmdDef.Format.Result)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TABULA_SERVER_PORT", "7070")
	t.Setenv("TABULA_SERVER_LOG_LEVEL", "debug")
	t.Setenv("TABULA_SOURCES_GOOGLE_API_KEY", "key-123")
	t.Setenv("TABULA_RELOAD_SCHEDULE", "@every 5m")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("Expected env log level debug, got %s", cfg.Server.LogLevel)
	}
	if cfg.Sources.Google.APIKey != "key-123" {
		t.Errorf("Expected env api key, got %q", cfg.Sources.Google.APIKey)
	}
	if cfg.Reload.Schedule != "@every 5m" {
		t.Errorf("Expected env reload schedule, got %q", cfg.Reload.Schedule)
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"TABULA_SERVER_PORT":                     "server.port",
		"TABULA_SERVER_LOG_LEVEL":                "server.log_level",
		"TABULA_CACHE_LOCK_MAX_RETRY":            "cache.lock_max_retry",
		"TABULA_SOURCES_GOOGLE_CREDENTIALS_FILE": "sources.google.credentials_file",
		"TABULA_DEFINITION_FILE":                 "definition_file",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePathFieldsExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &Config{
		Cache:          CacheConfig{Dir: "~/cache"},
		DefinitionFile: "~/definition.yaml",
	}
	if err := normalizePathFields(cfg); err != nil {
		t.Fatalf("normalizePathFields failed: %v", err)
	}

	if cfg.Cache.Dir != filepath.Join(home, "cache") {
		t.Errorf("unexpected cache dir: %s", cfg.Cache.Dir)
	}
	if cfg.DefinitionFile != filepath.Join(home, "definition.yaml") {
		t.Errorf("unexpected definition file: %s", cfg.DefinitionFile)
	}
}

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("", "2s")
	if err != nil || d.Seconds() != 2 {
		t.Fatalf("expected fallback 2s, got %v (%v)", d, err)
	}
	if _, err := DurationOrDefault("nope", ""); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := DurationOrDefault("", ""); err == nil {
		t.Fatal("expected empty error")
	}
	if _, err := DurationOrDefault("-1s", ""); err == nil {
		t.Fatal("expected negative duration error")
	}
}
