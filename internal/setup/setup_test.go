package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPathFor(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	path, err := configPathFor("linux", "/home/doc", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/home/doc/.config/Claude/claude_desktop_config.json", path)

	env["XDG_CONFIG_HOME"] = "/xdg"
	path, err = configPathFor("linux", "/home/doc", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/xdg/Claude/claude_desktop_config.json", path)

	path, err = configPathFor("darwin", "/Users/doc", getenv)
	require.NoError(t, err)
	assert.Equal(t, "/Users/doc/Library/Application Support/Claude/claude_desktop_config.json", path)

	_, err = configPathFor("windows", "", getenv)
	assert.Error(t, err)

	_, err = configPathFor("plan9", "/", getenv)
	assert.Error(t, err)
}

func TestInstall_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"other": {"command": "/usr/bin/other"}}
}`), 0644))

	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	entry, err := Install(Options{ConfigPath: configPath, BinaryPath: binary, DataDir: "/data/opd"})
	require.NoError(t, err)
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, "/data/opd", entry.Env["ONCOVISTA_DATA_DIR"])

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Ctrl+Space", raw["globalShortcut"])

	cfg, err := LoadClientConfig(configPath)
	require.NoError(t, err)
	assert.Len(t, cfg.MCPServers, 2)
	assert.Equal(t, "/usr/bin/other", cfg.MCPServers["other"].Command)

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.True(t, status.BinaryExists)
	assert.Empty(t, status.Issues)
	assert.Equal(t, "/data/opd", status.DataDir)

	removed, err := Uninstall(configPath)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = Uninstall(configPath)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "missing", "config.json")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.NotEmpty(t, status.Issues)

	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{
		ServerName: {Command: filepath.Join(dir, "gone")},
	}}
	require.NoError(t, cfg.Save(configPath))

	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.False(t, status.BinaryExists)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}
