// Package config loads CLI settings from config files, the environment and
// command-line flags.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/eventlog"
	"github.com/go-drift/viewcycle/pkg/host"
)

const (
	// FileName is the project config file name.
	FileName = ".viewcycle.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/viewcycle"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides (VIEWCYCLE_POLICY, ...).
	EnvPrefix = "VIEWCYCLE"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the resolved CLI settings.
type Config struct {
	Policy       string        `mapstructure:"policy"`
	Format       string        `mapstructure:"format"`
	Color        string        `mapstructure:"color"`
	Verbose      bool          `mapstructure:"verbose"`
	SnapshotsDir string        `mapstructure:"snapshots_dir"`
	Debounce     time.Duration `mapstructure:"debounce"`

	// Path is the config file that was read, or empty.
	Path string `mapstructure:"-"`
	// PolicyExplicit reports whether the policy came from a flag, the
	// environment or a config file rather than the default. Scenarios keep
	// their own policy unless it is.
	PolicyExplicit bool `mapstructure:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Policy:       host.UnmountFirst.String(),
		Format:       string(eventlog.FormatText),
		Color:        ColorAuto,
		SnapshotsDir: "testdata",
		Debounce:     200 * time.Millisecond,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("policy", d.Policy)
	v.SetDefault("format", d.Format)
	v.SetDefault("color", d.Color)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("snapshots_dir", d.SnapshotsDir)
	v.SetDefault("debounce", d.Debounce.String())
}

// Options control Load.
type Options struct {
	// Path is an explicit config file (from --config). It must exist.
	Path string
	// Flags, when set, override file and environment values for every flag
	// the user changed. Flag names use dashes ("snapshots-dir").
	Flags *pflag.FlagSet
}

// Load resolves settings with this precedence, highest first:
//  1. Changed flags
//  2. VIEWCYCLE_* environment variables
//  3. The config file (explicit path, else .viewcycle.yaml in the current
//     directory, else ~/.config/viewcycle/config.yaml)
//  4. Built-in defaults
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path, err := Find(opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, configError(fmt.Errorf("failed to read %s: %w", path, err))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			if key := strings.ReplaceAll(f.Name, "-", "_"); isKnownKey(key) {
				_ = v.BindPFlag(key, f)
			}
		})
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, configError(fmt.Errorf("invalid config: %w", err))
	}
	cfg.Path = path
	cfg.PolicyExplicit = v.InConfig("policy") || os.Getenv(EnvPrefix+"_POLICY") != "" ||
		(opts.Flags != nil && opts.Flags.Changed("policy"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isKnownKey(key string) bool {
	switch key {
	case "policy", "format", "color", "verbose", "snapshots_dir", "debounce":
		return true
	}
	return false
}

// Find locates the config file: the explicit path when given, then
// .viewcycle.yaml in the current directory, then the global config. It
// returns the empty string when there is none.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				return "", configError(fmt.Errorf("config file not found: %s", explicit))
			}
			return "", configError(fmt.Errorf("cannot access config file %s: %w", explicit, err))
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, FileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}
	return "", nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if _, err := host.ParsePolicy(c.Policy); err != nil {
		return configError(err)
	}
	if _, err := eventlog.ParseFormat(c.Format); err != nil {
		return configError(err)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return configError(fmt.Errorf("color must be %s, %s or %s, got %q", ColorAuto, ColorAlways, ColorNever, c.Color))
	}
	if c.Debounce < 0 {
		return configError(fmt.Errorf("debounce must not be negative"))
	}
	return nil
}

// HostPolicy returns the parsed ordering policy.
func (c *Config) HostPolicy() host.Policy {
	p, _ := host.ParsePolicy(c.Policy)
	return p
}

// LogFormat returns the parsed output format.
func (c *Config) LogFormat() eventlog.Format {
	f, _ := eventlog.ParseFormat(c.Format)
	return f
}

// UseColor resolves the color mode. Auto defers to isTerminal.
func (c *Config) UseColor(isTerminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return isTerminal
}

func configError(err error) error {
	return &errors.LifecycleError{Op: "config.Load", Kind: errors.KindConfig, Err: err}
}
