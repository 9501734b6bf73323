package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/beacon.db", cfg.Database.Path)
	assert.Equal(t, "^3.0", cfg.Wordware.AnalysisVersion)
	assert.Equal(t, "^1.0", cfg.Wordware.SummaryVersion)
	assert.Equal(t, "gen_Pn6h2m62tQOJZ3Af", cfg.Wordware.OutputField)
	assert.Equal(t, 60*time.Second, cfg.Wordware.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Stream.KeepAlive)
	assert.Equal(t, time.Minute, cfg.Stream.ReconcileWindow)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beacon.yaml")
	yaml := `
server:
  port: 9090
wordware:
  api_key: from-file
  timeout: 15s
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("BEACON_WORDWARE_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Wordware.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Wordware.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
	}
	require.NoError(t, base.Validate())

	pg := base
	pg.Database = DatabaseConfig{Driver: "postgres"}
	assert.Error(t, pg.Validate())
	pg.Database.DSN = "postgres://localhost/beacon"
	assert.NoError(t, pg.Validate())

	unknown := base
	unknown.Database.Driver = "mysql"
	assert.Error(t, unknown.Validate())

	badPort := base
	badPort.Server.Port = 0
	assert.Error(t, badPort.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
