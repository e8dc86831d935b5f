package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, 3306, cfg.Database.MySQL.Port)
	require.Equal(t, map[string]string{"sslmode": "require"}, cfg.Database.Options)
	require.Equal(t, 20, cfg.Database.Pool.MaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.Database.Pool.ConnMaxLifetime)

	require.Equal(t, "https://git.example.com", cfg.Remote.BaseURL)
	require.Equal(t, "admin-token", cfg.Remote.AdminToken)
	require.Equal(t, 45*time.Second, cfg.Remote.Timeout)
	require.Equal(t, "trunk", cfg.Remote.DefaultBranch)
	require.Equal(t, "squash", cfg.Remote.MergeStyle)
	require.True(t, cfg.Remote.DeleteBranchAfterMerge)

	require.True(t, cfg.Sync.MirrorPasswords)
	require.NotNil(t, cfg.Sync.ProhibitLogin)
	require.False(t, *cfg.Sync.ProhibitLogin)
	require.Equal(t, 32, cfg.Sync.RandomPasswordLength)

	require.Equal(t, 48*time.Hour, cfg.Invites.Expiry)
	require.Equal(t, 42, cfg.Invites.TokenBytes)
	require.Equal(t, "https://manager.example.com/", cfg.Invites.BaseURL)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, "@hourly", cfg.Maintenance.InviteSchedule)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "main", cfg.Remote.DefaultBranch)
	require.Equal(t, "merge", cfg.Remote.MergeStyle)
	require.Equal(t, 20*time.Second, cfg.Remote.Timeout)
	require.False(t, cfg.Sync.MirrorPasswords)
	require.Nil(t, cfg.Sync.ProhibitLogin)
	require.Equal(t, 7*24*time.Hour, cfg.Invites.Expiry)
	require.False(t, cfg.Email.SMTP.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("THEMANAGER_REMOTE_BASE_URL", "https://gitea.internal")
	t.Setenv("THEMANAGER_REMOTE_MERGE_STYLE", "rebase")
	t.Setenv("THEMANAGER_SYNC_MIRROR_PASSWORDS", "true")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "https://gitea.internal", cfg.Remote.BaseURL)
	require.Equal(t, "rebase", cfg.Remote.MergeStyle)
	require.True(t, cfg.Sync.MirrorPasswords)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	bad := *cfg
	bad.Remote.MergeStyle = "octopus"
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Remote.BaseURL = "git.example.com"
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Sync.RandomPasswordLength = 4
	require.Error(t, bad.Validate())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)

	mailer, err := cfg.Mailer()
	require.NoError(t, err)
	require.NotNil(t, mailer)
}
