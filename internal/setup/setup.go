// Package setup registers the OncoVista OPD MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key of our entry in the client's mcpServers map
const ServerName = "oncovista-opd"

// BinaryName is the MCP server executable looked up when no path is given
const BinaryName = "mcp-server"

// ClientConfig is the desktop client's config file. Unknown top-level keys are
// preserved on save.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`

	extra map[string]json.RawMessage
}

// ServerEntry launches one MCP server
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options for Install
type Options struct {
	ConfigPath string // default: ClientConfigPath()
	BinaryPath string // default: BinaryName looked up on PATH
	DataDir    string // exported as ONCOVISTA_DATA_DIR when set
	RedisURL   string // exported as ONCOVISTA_REDIS_URL when set
}

// Status describes the current registration
type Status struct {
	ConfigPath   string   `json:"config_path"`
	Registered   bool     `json:"registered"`
	Command      string   `json:"command,omitempty"`
	DataDir      string   `json:"data_dir,omitempty"`
	BinaryExists bool     `json:"binary_exists"`
	Issues       []string `json:"issues,omitempty"`
}

// ClientConfigPath returns the platform location of claude_desktop_config.json
func ClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return configPathFor(runtime.GOOS, home, os.Getenv)
}

func configPathFor(goos, home string, getenv func(string) string) (string, error) {
	var dir string
	switch goos {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "Claude")
		} else {
			dir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		dir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
	return filepath.Join(dir, "claude_desktop_config.json"), nil
}

// LoadClientConfig reads path; a missing file yields an empty config
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory
func (c *ClientConfig) Save(path string) error {
	out := make(map[string]any, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode client config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}

// Install adds or replaces the oncovista-opd entry and returns it
func Install(opts Options) (*ServerEntry, error) {
	path, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		binary, err = exec.LookPath(BinaryName)
		if err != nil {
			return nil, fmt.Errorf("could not find %s on PATH; pass the binary path explicitly", BinaryName)
		}
	}
	if abs, err := filepath.Abs(binary); err == nil {
		binary = abs
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	entry := ServerEntry{Command: binary}
	if opts.DataDir != "" || opts.RedisURL != "" {
		entry.Env = map[string]string{}
	}
	if opts.DataDir != "" {
		entry.Env["ONCOVISTA_DATA_DIR"] = opts.DataDir
	}
	if opts.RedisURL != "" {
		entry.Env["ONCOVISTA_REDIS_URL"] = opts.RedisURL
	}
	cfg.MCPServers[ServerName] = entry

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Uninstall removes the oncovista-opd entry; it reports whether one existed
func Uninstall(configPath string) (bool, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, cfg.Save(path)
}

// GetStatus inspects the client config without modifying it
func GetStatus(configPath string) (*Status, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: path}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "oncovista-opd is not registered")
		return status, nil
	}

	status.Registered = true
	status.Command = entry.Command
	status.DataDir = entry.Env["ONCOVISTA_DATA_DIR"]

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, "server binary not found: "+entry.Command)
	case info.Mode()&0111 == 0:
		status.BinaryExists = true
		status.Issues = append(status.Issues, "server binary is not executable: "+entry.Command)
	default:
		status.BinaryExists = true
	}
	return status, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ClientConfigPath()
}
