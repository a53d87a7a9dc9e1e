package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Applies defaults for missing keys", func(t *testing.T) {
		// Given: a config with only the secret
		path := writeConfig(t, "jwt-secret-key: secret\n")

		// When: loading it
		conf := MustLoad(path)

		// Then: everything else falls back to defaults
		assert.Equal(t, "info", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "8080", conf.SocketPort)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 24*time.Hour, conf.TokenTTL)
		assert.Equal(t, 6, conf.Rooms.IDLength)
		assert.Equal(t, int64(512), conf.WebSocket.ReadLimit)
		assert.Equal(t, 256, conf.WebSocket.SendBuffer)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		// Given: a file and an environment override
		path := writeConfig(t, "jwt-secret-key: secret\nsocket-port: \"7000\"\n")
		t.Setenv("SOCKET_PORT", "7001")
		t.Setenv("TOKEN_TTL", "90m")

		// When: loading it
		conf := MustLoad(path)

		// Then: the environment wins
		assert.Equal(t, "7001", conf.SocketPort)
		assert.Equal(t, 90*time.Minute, conf.TokenTTL)
	})

	t.Run("Panics without a secret", func(t *testing.T) {
		path := writeConfig(t, "log-level: debug\n")
		t.Setenv("JWT_SECRET_KEY", "")
		require.NoError(t, os.Unsetenv("JWT_SECRET_KEY"))

		assert.Panics(t, func() { MustLoad(path) })
	})

	t.Run("Panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yml")) })
	})
}
