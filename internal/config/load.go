package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working and config directories.
const FileName = "modelgl.yaml"

// Load loads configuration with priority: defaults < file < flags, then
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing candidate: the working
// directory, then ConfigDir.
func findConfigFile() string {
	for _, p := range []string{
		FileName,
		filepath.Join(ConfigDir(), FileName),
	} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory. MODELGL_CONFIG_DIR
// overrides it.
func ConfigDir() string {
	if dir := os.Getenv("MODELGL_CONFIG_DIR"); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
	}
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "modelgl")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "modelgl")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "modelgl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "modelgl")
}

// loadFromFile merges the YAML file at path into cfg. Keys missing from the
// file keep their current values; an empty file changes nothing.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}
