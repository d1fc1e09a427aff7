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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "twinenergy-api", cfg.ServiceName)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/twinenergy.db", cfg.Database.SQLitePath)
	assert.Equal(t, 5000, cfg.HTTP.Port)
	assert.False(t, cfg.RabbitMQ.Enabled())
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTP.Addr())
	assert.Zero(t, cfg.RateLimit.RequestsPerSecond, "rate limiting is opt-in")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
service_name: from-file
http:
  port: 7000
  read_timeout: 3s
database:
  sqlite_path: /tmp/file.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ServiceName)
	assert.Equal(t, 7100, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "/tmp/file.db", cfg.Database.SQLitePath)
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mongo")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_Port(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Port = 0
	assert.Error(t, cfg.Validate())
}
