// Package config loads the process configuration from defaults, an optional
// YAML file, the environment and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// envPrefix is the environment variable prefix for reportcycle settings.
const envPrefix = "REPORTCYCLE"

// Storage backends.
const (
	BackendS3   = "s3"
	BackendFile = "file"
)

// Revision strategies.
const (
	RevisionListing = "listing"
	RevisionCounter = "counter"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Defaults.
const (
	DefaultDatabasePath = "reportcycle.db"
	DefaultTimezone     = "Europe/Berlin"
	DefaultSenderName   = "ChronoPilot"
	DefaultListLimit    = 1000
	DefaultPort         = 8080
	DefaultCycleCron    = "0 6 * * *"
	DefaultReminderCron = "0 7 * * *"
)

// Config is the complete, validated process configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Timezone string         `mapstructure:"timezone"`
	Locale   string         `mapstructure:"locale"`
	// SenderName is the company name printed on statements and signed under mails.
	SenderName    string         `mapstructure:"sender_name"`
	RequireActive bool           `mapstructure:"require_active"`
	Chunk         ChunkConfig    `mapstructure:"chunk"`
	Revision      RevisionConfig `mapstructure:"revision"`
	Storage       StorageConfig  `mapstructure:"storage"`
	Assets        AssetsConfig   `mapstructure:"assets"`
	Chromium      ChromiumConfig `mapstructure:"chromium"`
	SMTP          SMTPConfig     `mapstructure:"smtp"`
	Notify        NotifyConfig   `mapstructure:"notify"`
	Log           LogConfig      `mapstructure:"log"`
	OTel          OTelConfig     `mapstructure:"otel"`
	Serve         ServeConfig    `mapstructure:"serve"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ChunkConfig selects the slice of due tenants a scheduled run handles.
// A size of zero handles all of them.
type ChunkConfig struct {
	Size  int `mapstructure:"size"`
	Index int `mapstructure:"index"`
}

// RevisionConfig selects how on-demand revisions are numbered: from the
// storage listing alone, or additionally through the database counter.
type RevisionConfig struct {
	Strategy string `mapstructure:"strategy"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	Dir       string `mapstructure:"dir"`
	ListLimit int    `mapstructure:"list_limit"`
}

// AssetsConfig points at the statement template and logo. An empty template
// path selects the built-in template; an empty logo path omits the logo.
type AssetsConfig struct {
	Template string `mapstructure:"template"`
	Logo     string `mapstructure:"logo"`
}

type ChromiumConfig struct {
	ExecPath  string `mapstructure:"exec_path"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
}

type SMTPConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	TLS                string `mapstructure:"tls"`
	From               string `mapstructure:"from"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OTelConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Exporter    string `mapstructure:"exporter"`
	Insecure    bool   `mapstructure:"insecure"`
}

type ServeConfig struct {
	Port         int    `mapstructure:"port"`
	CycleCron    string `mapstructure:"cycle_cron"`
	ReminderCron string `mapstructure:"reminder_cron"`
}

// Flags maps configuration keys to the command-line flags overriding them.
type Flags map[string]*pflag.Flag

// aliases are the bare environment names honored next to the prefixed ones.
var aliases = map[string][]string{
	"database.path":     {"DATABASE_PATH"},
	"chunk.size":        {"CHUNK_SIZE"},
	"chunk.index":       {"CHUNK_INDEX"},
	"serve.port":        {"PORT"},
	"otel.service_name": {"OTEL_SERVICE_NAME"},
	"otel.environment":  {"OTEL_ENVIRONMENT"},
	"otel.exporter":     {"OTEL_EXPORTER"},
	"otel.insecure":     {"OTEL_EXPORTER_OTLP_INSECURE"},
}

// Load reads the configuration. A non-empty file must exist; flags that were
// not set on the command line do not override other sources.
func Load(file string, flags Flags) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range aliases {
		bind := append([]string{key, envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(bind...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("locale", string(domain.LocaleGerman))
	v.SetDefault("sender_name", DefaultSenderName)
	v.SetDefault("require_active", false)

	v.SetDefault("chunk.size", 0)
	v.SetDefault("chunk.index", 0)

	v.SetDefault("revision.strategy", RevisionListing)

	v.SetDefault("storage.backend", BackendS3)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.path_style", false)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.list_limit", DefaultListLimit)

	v.SetDefault("assets.template", "")
	v.SetDefault("assets.logo", "")

	v.SetDefault("chromium.exec_path", "")
	v.SetDefault("chromium.no_sandbox", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.tls", "starttls")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.insecure_skip_verify", false)

	v.SetDefault("notify.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", FormatText)

	v.SetDefault("otel.service_name", "reportcycle")
	v.SetDefault("otel.environment", "development")
	v.SetDefault("otel.exporter", "none")
	v.SetDefault("otel.insecure", false)

	v.SetDefault("serve.port", DefaultPort)
	v.SetDefault("serve.cycle_cron", DefaultCycleCron)
	v.SetDefault("serve.reminder_cron", DefaultReminderCron)
}

// Validate checks every setting that can be checked without touching the
// outside world. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &domain.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.Database.Path == "" {
		invalid("database.path", "required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid("timezone", "unknown time zone %q", c.Timezone)
	}
	if !domain.Locale(c.Locale).Valid() {
		invalid("locale", "unsupported locale %q", c.Locale)
	}
	if c.Chunk.Size < 0 {
		invalid("chunk.size", "must not be negative")
	}
	if c.Chunk.Index < 0 {
		invalid("chunk.index", "must not be negative")
	}

	if c.Revision.Strategy != RevisionListing && c.Revision.Strategy != RevisionCounter {
		invalid("revision.strategy", "must be %q or %q", RevisionListing, RevisionCounter)
	}

	switch c.Storage.Backend {
	case BackendS3:
		if c.Storage.Bucket == "" {
			invalid("storage.bucket", "required for the s3 backend")
		}
	case BackendFile:
		if c.Storage.Dir == "" {
			invalid("storage.dir", "required for the file backend")
		}
	default:
		invalid("storage.backend", "unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.ListLimit < 0 {
		invalid("storage.list_limit", "must not be negative")
	}

	if c.Notify.Enabled && c.SMTP.Host == "" {
		invalid("smtp.host", "required when notify.enabled is set")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		invalid("smtp.from", "required when smtp.host is set")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		invalid("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Log.Format != FormatText && c.Log.Format != FormatJSON {
		invalid("log.format", "must be %q or %q", FormatText, FormatJSON)
	}

	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		invalid("serve.port", "out of range")
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone. It must only be called on a
// validated config.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogLevel returns the configured slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
