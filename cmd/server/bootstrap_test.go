package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FernandoVinha/TheManager/internal/app"
	"github.com/FernandoVinha/TheManager/internal/models"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = ":memory:"
	cfg.Remote.BaseURL = "https://git.example.com"
	cfg.Remote.AdminToken = "admin-token"
	return cfg
}

func TestBootstrapRuntimeBuildsRouter(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)
	require.True(t, stack.DB.Migrator().HasTable(&models.Project{}))

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapRuntimeRequiresRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Remote.BaseURL = ""

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     " db.internal ",
		Port:     5433,
		Database: "themanager",
		Username: "manager",
		Password: "secret",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5433, dbCfg.Port)
	require.Equal(t, "themanager", dbCfg.Name)
	require.Equal(t, "manager", dbCfg.User)

	cfg = &app.Config{}
	require.Equal(t, "sqlite", convertDatabaseConfig(cfg).Driver)
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), app.TracingConfig{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/does/not/exist")
	require.Error(t, err)
}
