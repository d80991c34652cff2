package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
	Payment struct {
		ActiveWindow time.Duration `yaml:"active_window"`
	} `yaml:"payment"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
payment:
  active_window: 45s
`)

	t.Run("decodes file into tagged struct", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", path)

		cfg, err := Load("svc")
		require.NoError(t, err)

		var out sample
		require.NoError(t, cfg.Decode(&out))
		assert.Equal(t, "127.0.0.1", out.Server.Host)
		assert.Equal(t, 8080, out.Server.Port)
		assert.Equal(t, 45*time.Second, out.Payment.ActiveWindow)
		assert.Equal(t, path, cfg.File())
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", path)
		t.Setenv("SVC_SERVER_PORT", "9090")

		cfg, err := Load("svc")
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.GetInt("server.port"))

		var out sample
		require.NoError(t, cfg.Decode(&out))
		assert.Equal(t, 9090, out.Server.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load("svc")
		assert.Error(t, err)
	})
}
