package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeaderFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "headers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestHeaderManager_Priority(t *testing.T) {
	path := writeHeaderFile(t, "headers:\n  User-Agent: \"FileBot/1.0\"\n  Referer: \"https://www.google.com/\"\n")

	hm, err := NewHeaderManager(path, []string{"User-Agent: CliBot/2.0"})
	require.NoError(t, err)

	headers, err := hm.GetHeaders()
	require.NoError(t, err)

	assert.Equal(t, "CliBot/2.0", headers.Get("User-Agent"), "命令行优先")
	assert.Equal(t, "https://www.google.com/", headers.Get("Referer"), "配置文件覆盖默认")
	assert.Equal(t, "en-US,en;q=0.9", headers.Get("Accept-Language"), "保留默认头部")
}

func TestHeaderManager_DefaultsOnly(t *testing.T) {
	hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	headers, err := hm.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
}

func TestHeaderManager_ReturnsCopy(t *testing.T) {
	hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	first, _ := hm.GetHeaders()
	first.Set("User-Agent", "mutated")

	second, _ := hm.GetHeaders()
	assert.Equal(t, DefaultUserAgent, second.Get("User-Agent"))
}

func TestHeaderManager_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		name string
		file string
		cli  []string
	}{
		{"命令行格式错误", missing, []string{"NoColon"}},
		{"命令行禁止头部", missing, []string{"Host: example.com"}},
		{"配置文件非法值", writeHeaderFile(t, "headers:\n  X-Bad: \"中文\"\n"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHeaderManager(tt.file, tt.cli)
			assert.Error(t, err)
		})
	}
}

func TestHeaderManager_SafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "missing.yaml"), []string{"Authorization: Bearer secret"})
	require.NoError(t, err)

	safe := strings.Join(hm.SafeHeaders(), "\n")
	assert.Contains(t, safe, "Authorization: Bearer ***")
	assert.NotContains(t, safe, "secret")
}
