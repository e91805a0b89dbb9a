package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RELWATCH"

// Configuration keys
const (
	KeyDBPath              = "db_path"
	KeyGitHubToken         = "github_token"
	KeyNtfyTopic           = "ntfy.topic"
	KeyNtfyServer          = "ntfy.server"
	KeyNtfyToken           = "ntfy.token"
	KeyScheduleInterval    = "schedule.interval"
	KeyScheduleCron        = "schedule.cron"
	KeySchedulePassTimeout = "schedule.pass_timeout"
)

// Defaults
const (
	DefaultDBPath     = "programs.db"
	DefaultNtfyServer = "https://ntfy.sh"
	// DefaultInterval is the check interval in seconds
	DefaultInterval = 3600
)

// Config represents the relwatch configuration
type Config struct {
	// Path to the SQLite database
	DBPath string
	// GitHub token for API access (optional)
	GitHubToken string
	Ntfy        NtfyConfig
	Schedule    ScheduleConfig
}

// NtfyConfig holds the notification target
type NtfyConfig struct {
	Topic  string
	Server string
	Token  string
}

// ScheduleConfig controls timed checks
type ScheduleConfig struct {
	Interval    time.Duration
	Cron        string
	PassTimeout time.Duration
}

// Loader reads configuration from defaults, a TOML file, RELWATCH_* environment
// variables and bound flags, in increasing order of precedence
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a Loader. An empty path selects DefaultPath.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, path: path}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, DefaultDBPath)
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyNtfyTopic, "")
	v.SetDefault(KeyNtfyServer, DefaultNtfyServer)
	v.SetDefault(KeyNtfyToken, "")
	v.SetDefault(KeyScheduleInterval, DefaultInterval)
	v.SetDefault(KeyScheduleCron, "")
	v.SetDefault(KeySchedulePassTimeout, 0)
}

// BindFlag lets a command line flag override key when it was set explicitly
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for %s", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
	}
	return nil
}

// Path returns the config file that Load reads
func (l *Loader) Path() (string, error) {
	if l.path != "" {
		return l.path, nil
	}
	return DefaultPath()
}

// Load merges all sources into a Config. A missing config file is not an
// error, the defaults are used instead.
func (l *Loader) Load() (*Config, error) {
	path, err := l.Path()
	if err != nil {
		return nil, err
	}
	if err := mergeConfigFile(l.v, path); err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:      l.v.GetString(KeyDBPath),
		GitHubToken: l.v.GetString(KeyGitHubToken),
		Ntfy: NtfyConfig{
			Topic:  l.v.GetString(KeyNtfyTopic),
			Server: l.v.GetString(KeyNtfyServer),
			Token:  l.v.GetString(KeyNtfyToken),
		},
		Schedule: ScheduleConfig{
			Interval:    time.Duration(l.v.GetInt(KeyScheduleInterval)) * time.Second,
			Cron:        l.v.GetString(KeyScheduleCron),
			PassTimeout: time.Duration(l.v.GetInt(KeySchedulePassTimeout)) * time.Second,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%s must not be empty", KeyDBPath)
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("%s must not be negative", KeyScheduleInterval)
	}
	if c.Schedule.PassTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeySchedulePassTimeout)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/relwatch/config.toml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "relwatch", "config.toml"), nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Show prints the configuration with secrets masked
func (c *Config) Show(w io.Writer) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintf(w, "Database: %s\n", c.DBPath)
	fmt.Fprintf(w, "GitHub token: %s\n", secret(c.GitHubToken))
	fmt.Fprintf(w, "ntfy server: %s\n", c.Ntfy.Server)
	fmt.Fprintf(w, "ntfy topic: %s\n", orNone(c.Ntfy.Topic))
	fmt.Fprintf(w, "ntfy token: %s\n", secret(c.Ntfy.Token))
	if c.Schedule.Cron != "" {
		fmt.Fprintf(w, "Schedule: cron %q\n", c.Schedule.Cron)
	} else {
		fmt.Fprintf(w, "Schedule: every %s\n", c.Schedule.Interval)
	}
	if c.Schedule.PassTimeout > 0 {
		fmt.Fprintf(w, "Pass timeout: %s\n", c.Schedule.PassTimeout)
	}
}

func secret(s string) string {
	if s == "" {
		return "[not set]"
	}
	return "[set]"
}

func orNone(s string) string {
	if s == "" {
		return "[not set]"
	}
	return s
}
