package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v2panel.yaml")
	data := `
listen: "127.0.0.1:8080"
backend:
  binary: /usr/local/bin/v2ray
  gracePeriod: 2s
router:
  dialTimeout: 750ms
keepAlive:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", s.Listen)
	assert.Equal(t, "/usr/local/bin/v2ray", s.Backend.Binary)
	assert.Equal(t, 2*time.Second, s.Backend.GracePeriod)
	assert.Equal(t, 750*time.Millisecond, s.Router.DialTimeout)
	assert.True(t, s.KeepAlive.Enabled)

	// untouched keys keep their defaults
	assert.Equal(t, []string{"run", "-c", "{config}"}, s.Backend.Args)
	assert.Equal(t, 100, s.Backend.LogCapacity)
	assert.Equal(t, "@every 30s", s.KeepAlive.Schedule)
}

func TestLoadSettingsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}
