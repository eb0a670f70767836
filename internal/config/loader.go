package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var (
	envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)
)

// ExecutableDir returns the directory containing the running executable.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Load reads handler.yaml from dir, applies defaults and RUNAPP_* environment
// overrides, and validates the result. A missing handler.yaml is not an error.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir %q: %w", dir, err)
	}

	cfg := &Config{}
	path := filepath.Join(absDir, SettingsFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		interpolated := interpolateEnv(string(data))
		if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg = applyConfigDefaults(cfg)

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.BaseDir = absDir
	cfg.Log.File = cfg.resolve(cfg.Log.File)
	cfg.Journal.Path = cfg.resolve(cfg.Journal.Path)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RegistryPath returns the absolute path of RegisteredApps.xml.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.BaseDir, RegistryFileName)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Scheme == "" {
		cfg.Service.Scheme = defaults.Service.Scheme
	}
	if cfg.Service.Title == "" {
		cfg.Service.Title = defaults.Service.Title
	}
	if cfg.Service.Notify == "" {
		cfg.Service.Notify = defaults.Service.Notify
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if !schemePattern.MatchString(cfg.Service.Scheme) {
		return fmt.Errorf("service.scheme must be a URL scheme name (got %q)", cfg.Service.Scheme)
	}

	validNotify := map[string]bool{"auto": true, "dialog": true, "terminal": true, "none": true}
	if !validNotify[cfg.Service.Notify] {
		return fmt.Errorf("service.notify must be one of: auto, dialog, terminal, none (got %q)", cfg.Service.Notify)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", cfg.Log.Level)
	}

	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text (got %q)", cfg.Log.Format)
	}

	if envVarPattern.MatchString(cfg.Log.File) {
		matches := envVarPattern.FindStringSubmatch(cfg.Log.File)
		return fmt.Errorf("log.file: environment variable ${%s} is not set", matches[1])
	}
	if envVarPattern.MatchString(cfg.Journal.Path) {
		matches := envVarPattern.FindStringSubmatch(cfg.Journal.Path)
		return fmt.Errorf("journal.path: environment variable ${%s} is not set", matches[1])
	}

	return nil
}
