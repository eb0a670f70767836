package config

// File names resolved against the handler's executable directory.
const (
	SettingsFileName  = "handler.yaml"
	RegistryFileName  = "RegisteredApps.xml"
	ChecksumsFileName = ".checksums"
)

// Config represents the handler settings read from handler.yaml.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Log     LogConfig     `yaml:"log"`
	Launch  LaunchConfig  `yaml:"launch"`
	Journal JournalConfig `yaml:"journal"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `yaml:"-"`
}

// ServiceConfig defines how the handler identifies itself.
type ServiceConfig struct {
	Scheme string `yaml:"scheme" env:"RUNAPP_SCHEME"` // without "://"
	Title  string `yaml:"title" env:"RUNAPP_TITLE"`   // notification title
	Notify string `yaml:"notify" env:"RUNAPP_NOTIFY"` // auto, dialog, terminal, none
}

// LogConfig defines log output.
type LogConfig struct {
	Level  string `yaml:"level" env:"RUNAPP_LOG_LEVEL"`
	Format string `yaml:"format" env:"RUNAPP_LOG_FORMAT"`
	File   string `yaml:"file" env:"RUNAPP_LOG_FILE"` // empty logs to stderr
}

// LaunchConfig defines how target processes are started.
type LaunchConfig struct {
	// UseEntryArgs prepends a registry entry's args template to the target's arguments.
	UseEntryArgs bool `yaml:"use_entry_args" env:"RUNAPP_USE_ENTRY_ARGS"`
}

// JournalConfig defines the optional launch journal.
type JournalConfig struct {
	Path string `yaml:"path" env:"RUNAPP_JOURNAL_PATH"` // empty disables the journal
}

// Defaults returns a Config with the handler defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Scheme: "runapp",
			Title:  "RunApp URL Protocol Handler",
			Notify: "auto",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
