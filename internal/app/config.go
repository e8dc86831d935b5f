package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration of the TheManager server.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Invites     InviteConfig      `mapstructure:"invites"`
	Email       EmailConfig       `mapstructure:"email"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is json (default) or console.
	LogFormat string `mapstructure:"log_format"`
	// TrustedProxies limits which peers may set forwarding headers.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	// Options are appended to generated postgres/mysql DSNs (sslmode, tls, ...).
	Options map[string]string `mapstructure:"options"`
	Pool    DBPoolConfig      `mapstructure:"pool"`
}

// DBPoolConfig bounds the connection pool; zero keeps the driver default.
type DBPoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RemoteConfig points at the git hosting service and tunes the merge workflow.
type RemoteConfig struct {
	BaseURL                string        `mapstructure:"base_url"`
	AdminToken             string        `mapstructure:"admin_token"`
	Timeout                time.Duration `mapstructure:"timeout"`
	DefaultBranch          string        `mapstructure:"default_branch"`
	MergeStyle             string        `mapstructure:"merge_style"`
	DeleteBranchAfterMerge bool          `mapstructure:"delete_branch_after_merge"`
}

// SyncConfig holds the reconciliation toggles.
type SyncConfig struct {
	MirrorPasswords      bool  `mapstructure:"mirror_passwords"`
	ProhibitLogin        *bool `mapstructure:"prohibit_login"`
	RandomPasswordLength int   `mapstructure:"random_password_length"`
}

// InviteConfig controls credential-setup tokens.
type InviteConfig struct {
	Expiry     time.Duration `mapstructure:"expiry"`
	TokenBytes int           `mapstructure:"token_bytes"`
	BaseURL    string        `mapstructure:"base_url"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// TracingConfig configures OTLP span export. An empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

// MaintenanceConfig schedules background housekeeping.
type MaintenanceConfig struct {
	InviteSchedule     string `mapstructure:"invite_schedule"`
	AuditSchedule      string `mapstructure:"audit_schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("THEMANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are only picked up from the environment when bound.
	_ = v.BindEnv("sync.prohibit_login")

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Remote.BaseURL) != "" && !strings.HasPrefix(c.Remote.BaseURL, "http") {
		return fmt.Errorf("config: remote.base_url must be an absolute http(s) URL")
	}
	switch strings.ToLower(strings.TrimSpace(c.Remote.MergeStyle)) {
	case "merge", "rebase", "rebase-merge", "squash", "fast-forward-only", "manually-merged":
	default:
		return fmt.Errorf("config: unsupported remote.merge_style %q", c.Remote.MergeStyle)
	}
	if c.Sync.RandomPasswordLength < 8 {
		return fmt.Errorf("config: sync.random_password_length must be at least 8")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/themanager.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.pool.max_open_conns", 0)
	v.SetDefault("database.pool.max_idle_conns", 0)
	v.SetDefault("database.pool.conn_max_lifetime", "0s")

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.admin_token", "")
	v.SetDefault("remote.timeout", "20s")
	v.SetDefault("remote.default_branch", "main")
	v.SetDefault("remote.merge_style", "merge")
	v.SetDefault("remote.delete_branch_after_merge", false)

	v.SetDefault("sync.mirror_passwords", false)
	v.SetDefault("sync.random_password_length", 24)

	v.SetDefault("invites.expiry", "168h") // 7 days
	v.SetDefault("invites.token_bytes", 42)
	v.SetDefault("invites.base_url", "")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.service_name", "themanager")

	v.SetDefault("maintenance.invite_schedule", "@hourly")
	v.SetDefault("maintenance.audit_schedule", "@daily")
	v.SetDefault("maintenance.audit_retention_days", 90)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
