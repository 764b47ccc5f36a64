package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/tabula/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server         ServerConfig  `koanf:"server" yaml:"server"`
	Slack          SlackConfig   `koanf:"slack" yaml:"slack"`
	Sources        SourcesConfig `koanf:"sources" yaml:"sources"`
	Cache          CacheConfig   `koanf:"cache" yaml:"cache"`
	Reload         ReloadConfig  `koanf:"reload" yaml:"reload"`
	Daemon         DaemonConfig  `koanf:"daemon" yaml:"daemon"`
	DefinitionFile string        `koanf:"definition_file" yaml:"definition_file"`
	Definition     Definition    `koanf:"definition" yaml:"definition"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type SlackConfig struct {
	SigningSecret string `koanf:"signing_secret" yaml:"signing_secret"`
	CommandsPath  string `koanf:"commands_path" yaml:"commands_path"`
	WebhookURL    string `koanf:"webhook_url" yaml:"webhook_url"`
}

type SourcesConfig struct {
	LoadTimeout string             `koanf:"load_timeout" yaml:"load_timeout"`
	Google      GoogleSourceConfig `koanf:"google" yaml:"google"`
}

type GoogleSourceConfig struct {
	CredentialsFile string `koanf:"credentials_file" yaml:"credentials_file"`
	APIKey          string `koanf:"api_key" yaml:"api_key"`
	RequestTimeout  string `koanf:"request_timeout" yaml:"request_timeout"`
}

type CacheConfig struct {
	Enabled      bool   `koanf:"enabled" yaml:"enabled"`
	Dir          string `koanf:"dir" yaml:"dir"`
	LockTimeout  string `koanf:"lock_timeout" yaml:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry" yaml:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry" yaml:"lock_max_retry"`
}

type ReloadConfig struct {
	Schedule string `koanf:"schedule" yaml:"schedule"`
	Timeout  string `koanf:"timeout" yaml:"timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval" yaml:"health_check_interval"`
}

const (
	DefaultServerPort              = 8080
	DefaultServerLogLevel          = "info"
	DefaultServerReadTimeout       = "10s"
	DefaultServerWriteTimeout      = "10s"
	DefaultServerIdleTimeout       = "60s"
	DefaultServerShutdownTimeout   = "5s"
	DefaultSlackCommandsPath       = "/slack/commands"
	DefaultSourcesLoadTimeout      = "30s"
	DefaultGoogleRequestTimeout    = "20s"
	DefaultCacheEnabled            = true
	DefaultCacheLockTimeout        = "10s"
	DefaultCacheLockRetry          = "100ms"
	DefaultCacheLockMaxRetry       = 100
	DefaultReloadSchedule          = ""
	DefaultReloadTimeout           = "60s"
	DefaultDaemonShutdownTimeout   = "30s"
	DefaultDaemonHealthCheckPeriod = "30s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                    DefaultServerPort,
		"server.log_level":               DefaultServerLogLevel,
		"server.read_timeout":            DefaultServerReadTimeout,
		"server.write_timeout":           DefaultServerWriteTimeout,
		"server.idle_timeout":            DefaultServerIdleTimeout,
		"server.shutdown_timeout":        DefaultServerShutdownTimeout,
		"slack.commands_path":            DefaultSlackCommandsPath,
		"sources.load_timeout":           DefaultSourcesLoadTimeout,
		"sources.google.request_timeout": DefaultGoogleRequestTimeout,
		"cache.enabled":                  DefaultCacheEnabled,
		"cache.dir":                      filepath.Join(os.Getenv("HOME"), ".tabula", "cache"),
		"cache.lock_timeout":             DefaultCacheLockTimeout,
		"cache.lock_retry":               DefaultCacheLockRetry,
		"cache.lock_max_retry":           DefaultCacheLockMaxRetry,
		"reload.schedule":                DefaultReloadSchedule,
		"reload.timeout":                 DefaultReloadTimeout,
		"daemon.shutdown_timeout":        DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":   DefaultDaemonHealthCheckPeriod,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".tabula", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables. Only the fixed sections are mapped; the definition is
	// keyed by user-chosen names and cannot be expressed through env vars.
	k.Load(env.Provider("TABULA_", ".", envKey), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Vars if missing
	if secret := os.Getenv("SLACK_SIGNING_SECRET"); secret != "" && cfg.Slack.SigningSecret == "" {
		cfg.Slack.SigningSecret = secret
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && cfg.Sources.Google.CredentialsFile == "" {
		cfg.Sources.Google.CredentialsFile = creds
	}

	return &cfg, nil
}

// envKey maps TABULA_SERVER_LOG_LEVEL to server.log_level. The first underscore
// separates the section, the remainder is the (snake_case) field name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "TABULA_"))
	switch {
	case strings.HasPrefix(key, "sources_google_"):
		return "sources.google." + strings.TrimPrefix(key, "sources_google_")
	case key == "definition_file":
		return key
	}
	section, field, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + field
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	cacheDir, err := expandConfiguredPath(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}

	definitionFile, err := expandConfiguredPath(cfg.DefinitionFile)
	if err != nil {
		return err
	}
	if definitionFile != "" {
		cfg.DefinitionFile = definitionFile
	}

	credentials, err := expandConfiguredPath(cfg.Sources.Google.CredentialsFile)
	if err != nil {
		return err
	}
	if credentials != "" {
		cfg.Sources.Google.CredentialsFile = credentials
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
