package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider type constants.
const (
	ProviderNone  = "none"
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
	ProviderDemo  = "demo"
)

// GmailConfig holds settings for the Gmail API provider.
type GmailConfig struct {
	// CredentialsFile is the OAuth client secret JSON downloaded from
	// the Google console.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`

	// TokenKey is the keyring entry holding the OAuth token JSON.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`
}

// IMAPConfig holds settings for the IMAP provider. The password is read
// from the keyring, never from the config file.
type IMAPConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        string `mapstructure:"port" yaml:"port"`
	Username    string `mapstructure:"username" yaml:"username"`
	TLS         bool   `mapstructure:"tls" yaml:"tls"`
	SentMailbox string `mapstructure:"sent_mailbox" yaml:"sent_mailbox"`
	SinceDays   int    `mapstructure:"since_days" yaml:"since_days"`
}

// ProviderConfig selects and configures the message provider.
type ProviderConfig struct {
	// Type is one of "gmail", "imap", "demo" or "none".
	Type string `mapstructure:"type" yaml:"type"`

	// MaxThreads bounds how many threads a single sync fetches.
	MaxThreads int `mapstructure:"max_threads" yaml:"max_threads"`

	// PollIntervalSec is how often to sync automatically; 0 disables
	// polling and leaves only manual syncs.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	Gmail GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`
}

// TriageConfig holds settings for the triage engine.
type TriageConfig struct {
	// ReconcileIntervalSec is the periodic reconcile tick.
	ReconcileIntervalSec int `mapstructure:"reconcile_interval_sec" yaml:"reconcile_interval_sec"`

	// FocusLimit bounds each focus queue.
	FocusLimit int `mapstructure:"focus_limit" yaml:"focus_limit"`

	// InternalDomains are sender domains filed as Internal on ingestion.
	// Defaults to the operator's own domain.
	InternalDomains []string `mapstructure:"internal_domains" yaml:"internal_domains"`
}

// StorageConfig controls the on-disk journal.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Operator Operator       `mapstructure:"operator" yaml:"operator"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Triage   TriageConfig   `mapstructure:"triage" yaml:"triage"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// envOverrides are applied on top of the YAML file. Empty values leave
// the file's value in place.
type envOverrides struct {
	OperatorName  string `env:"DESK_OPERATOR_NAME"`
	OperatorEmail string `env:"DESK_OPERATOR_EMAIL"`
	ProviderType  string `env:"DESK_PROVIDER"`
	StoragePath   string `env:"DESK_DB_PATH"`
	ServerAddr    string `env:"DESK_ADDR"`
	LogLevel      string `env:"DESK_LOG_LEVEL"`
	LogFormat     string `env:"DESK_LOG_FORMAT"`
}

// DefaultConfigDir returns ~/.config/desk.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "desk")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/desk/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Provider: ProviderConfig{
			Type:            ProviderNone,
			MaxThreads:      15,
			PollIntervalSec: 0,
			Gmail: GmailConfig{
				CredentialsFile: filepath.Join(DefaultConfigDir(), "credentials.json"),
				TokenKey:        "gmail-token",
			},
			IMAP: IMAPConfig{
				Port:        "993",
				TLS:         true,
				SentMailbox: "Sent",
				SinceDays:   30,
			},
		},
		Triage: TriageConfig{
			ReconcileIntervalSec: 300,
			FocusLimit:           5,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultConfigDir(), "desk.db"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults mirrors DefaultAppConfig so that missing keys resolve to
// sensible values after unmarshaling.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("provider.type", d.Provider.Type)
	v.SetDefault("provider.max_threads", d.Provider.MaxThreads)
	v.SetDefault("provider.poll_interval_sec", d.Provider.PollIntervalSec)
	v.SetDefault("provider.gmail.credentials_file", d.Provider.Gmail.CredentialsFile)
	v.SetDefault("provider.gmail.token_key", d.Provider.Gmail.TokenKey)
	v.SetDefault("provider.imap.port", d.Provider.IMAP.Port)
	v.SetDefault("provider.imap.tls", d.Provider.IMAP.TLS)
	v.SetDefault("provider.imap.sent_mailbox", d.Provider.IMAP.SentMailbox)
	v.SetDefault("provider.imap.since_days", d.Provider.IMAP.SinceDays)
	v.SetDefault("triage.reconcile_interval_sec", d.Triage.ReconcileIntervalSec)
	v.SetDefault("triage.focus_limit", d.Triage.FocusLimit)
	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadConfig reads configuration from the given YAML file path using
// Viper, then applies DESK_* environment overrides (a .env file in the
// working directory is loaded first if present). A missing file yields
// the default configuration. Values already set on v take precedence
// over the file; pass nil when there are none.
func LoadConfig(path string, v *viper.Viper) (*AppConfig, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if _, pathErr := err.(*os.PathError); !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// applyEnv overlays DESK_* environment variables onto cfg.
func applyEnv(cfg *AppConfig) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	set(&cfg.Operator.Name, o.OperatorName)
	set(&cfg.Operator.Email, o.OperatorEmail)
	set(&cfg.Provider.Type, o.ProviderType)
	set(&cfg.Storage.Path, o.StoragePath)
	set(&cfg.Server.Addr, o.ServerAddr)
	set(&cfg.Log.Level, o.LogLevel)
	set(&cfg.Log.Format, o.LogFormat)
	return nil
}

// normalize fills derived defaults that depend on other fields.
func (c *AppConfig) normalize() {
	if c.Triage.ReconcileIntervalSec <= 0 {
		c.Triage.ReconcileIntervalSec = 300
	}
	if c.Triage.FocusLimit < 0 {
		c.Triage.FocusLimit = 0
	}
	if c.Provider.MaxThreads <= 0 {
		c.Provider.MaxThreads = 15
	}
	if len(c.Triage.InternalDomains) == 0 {
		if d := c.Operator.Domain(); d != "" {
			c.Triage.InternalDomains = []string{d}
		}
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("operator", cfg.Operator)
	v.Set("provider", cfg.Provider)
	v.Set("triage", cfg.Triage)
	v.Set("storage", cfg.Storage)
	v.Set("server", cfg.Server)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
