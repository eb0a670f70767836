package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0o644))
}

func TestLoadWithoutSettingsFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	defaults := Defaults()
	assert.Equal(t, defaults.Service, cfg.Service)
	assert.Equal(t, defaults.Log.Level, cfg.Log.Level)
	assert.Equal(t, defaults.Log.Format, cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Empty(t, cfg.Journal.Path)
	assert.False(t, cfg.Launch.UseEntryArgs)
	assert.Equal(t, filepath.Join(cfg.BaseDir, RegistryFileName), cfg.RegistryPath())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "full settings",
			yaml: `
service:
  scheme: opticks-run
  title: Opticks URL Protocol Handler
  notify: terminal
log:
  level: debug
  format: text
  file: logs/runapp.log
launch:
  use_entry_args: true
journal:
  path: /var/lib/runapp/journal.db
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "opticks-run", cfg.Service.Scheme)
				assert.Equal(t, "Opticks URL Protocol Handler", cfg.Service.Title)
				assert.Equal(t, "terminal", cfg.Service.Notify)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "text", cfg.Log.Format)
				assert.Equal(t, filepath.Join(cfg.BaseDir, "logs", "runapp.log"), cfg.Log.File)
				assert.True(t, cfg.Launch.UseEntryArgs)
				assert.Equal(t, "/var/lib/runapp/journal.db", cfg.Journal.Path)
			},
		},
		{
			name: "env interpolation in yaml",
			yaml: `
journal:
  path: ${RUNAPP_TEST_DATA}/journal.db
`,
			env: map[string]string{"RUNAPP_TEST_DATA": "/srv/data"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/data/journal.db", cfg.Journal.Path)
			},
		},
		{
			name: "env overrides yaml",
			yaml: `
service:
  scheme: fromfile
log:
  level: warn
`,
			env: map[string]string{"RUNAPP_SCHEME": "fromenv", "RUNAPP_LOG_LEVEL": "error", "RUNAPP_USE_ENTRY_ARGS": "true"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "fromenv", cfg.Service.Scheme)
				assert.Equal(t, "error", cfg.Log.Level)
				assert.True(t, cfg.Launch.UseEntryArgs)
			},
		},
		{
			name:    "unresolved env var in journal path",
			yaml:    "journal:\n  path: ${RUNAPP_TEST_UNSET_VAR}/j.db\n",
			wantErr: "environment variable ${RUNAPP_TEST_UNSET_VAR} is not set",
		},
		{
			name:    "invalid scheme",
			yaml:    "service:\n  scheme: \"run app\"\n",
			wantErr: "service.scheme must be a URL scheme name",
		},
		{
			name:    "invalid notify mode",
			yaml:    "service:\n  notify: popup\n",
			wantErr: "service.notify must be one of",
		},
		{
			name:    "invalid log level",
			yaml:    "log:\n  level: verbose\n",
			wantErr: "log.level must be one of",
		},
		{
			name:    "invalid log format",
			yaml:    "log:\n  format: xml\n",
			wantErr: "log.format must be json or text",
		},
		{
			name:    "malformed yaml",
			yaml:    "service: [unterminated\n",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			writeSettings(t, dir, tt.yaml)

			cfg, err := Load(dir)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFn(t, cfg)
		})
	}
}

func TestInterpolateEnvLeavesUndefined(t *testing.T) {
	t.Setenv("RUNAPP_TEST_DEFINED", "yes")
	got := interpolateEnv("${RUNAPP_TEST_DEFINED}-${RUNAPP_TEST_NOT_DEFINED_X}")
	assert.Equal(t, "yes-${RUNAPP_TEST_NOT_DEFINED_X}", got)
}
