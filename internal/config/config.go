// Package config loads preopen settings from defaults, an optional TOML file,
// and PREOPEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/neoclaw-ai/preopen/internal/registry"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable read by Load and LoadEnv.
	EnvPrefix = "PREOPEN"
	// HomeEnvVar overrides the directory holding config.toml.
	HomeEnvVar = "PREOPEN_HOME"
	// ConfigFileName is the config file looked up under the home directory.
	ConfigFileName = "config.toml"
	// LibraryFileName is the preload library looked up next to the CLI binary.
	LibraryFileName = "libpreopen.so"
)

// Config is the merged preopen configuration.
type Config struct {
	// HomeDir is resolved from PREOPEN_HOME and not read from config.
	HomeDir string `mapstructure:"-"`
	// Path is the raw ':'-separated preopen list, normally from PREOPEN_PATH.
	// Unlike other string fields it is never env-expanded.
	Path string `mapstructure:"path"`
	// Dirs are extra preopened directories appended after Path.
	Dirs    []string      `mapstructure:"dirs"`
	Library string        `mapstructure:"library"`
	Debug   bool          `mapstructure:"debug"`
	Match   string        `mapstructure:"match"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
}

// SandboxConfig controls Landlock confinement of commands started by `preopen run`.
type SandboxConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	BestEffort   bool     `mapstructure:"best_effort"`
	ReadOnlyDirs []string `mapstructure:"read_only_dirs"`
}

var defaultConfig = Config{
	Path:    "",
	Dirs:    []string{},
	Library: "",
	Debug:   false,
	Match:   registry.MatchPrefix.String(),
	Sandbox: SandboxConfig{
		Enabled:      false,
		BestEffort:   true,
		ReadOnlyDirs: []string{},
	},
}

// HomeDir returns PREOPEN_HOME if set, otherwise ~/.preopen.
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".preopen"), nil
}

// LoadEnv merges defaults and PREOPEN_* environment variables. It never
// touches the filesystem, which keeps it usable from the preload shim.
func LoadEnv() (*Config, error) {
	v := newViper()
	return decode(v)
}

// PathOnly returns the defaults with Path taken verbatim from PREOPEN_PATH. The
// shim falls back to it when another PREOPEN_* variable does not decode.
func PathOnly() *Config {
	cfg := defaultConfig
	cfg.Path = os.Getenv(registry.EnvVar)
	return &cfg
}

// Load merges defaults, the TOML file at path, and environment variables in
// that order. An empty path means $PREOPEN_HOME/config.toml, which may be absent.
func Load(path string) (*Config, error) {
	v, homeDir, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.HomeDir = homeDir
	return cfg, nil
}

// Write renders the merged configuration for path to w as TOML.
func Write(w io.Writer, path string) error {
	if w == nil {
		return errors.New("writer is required")
	}
	v, _, err := readConfig(path)
	if err != nil {
		return err
	}
	v.SetConfigType("toml")
	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigPath returns the config file location under the home directory.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.HomeDir, ConfigFileName)
}

// PreopenList returns the directories of Path followed by Dirs, in order.
func (c *Config) PreopenList() []string {
	list := registry.Split(c.Path)
	for _, dir := range c.Dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			list = append(list, dir)
		}
	}
	return list
}

// MatchMode parses Match, falling back to literal prefix matching.
func (c *Config) MatchMode() registry.Match {
	m, err := registry.ParseMatch(c.Match)
	if err != nil {
		return registry.MatchPrefix
	}
	return m
}

func readConfig(path string) (*viper.Viper, string, error) {
	homeDir, err := HomeDir()
	if err != nil {
		return nil, "", err
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, ConfigFileName)
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if !missing || explicit {
			return nil, "", fmt.Errorf("read config file %q: %w", path, err)
		}
	}
	return v, homeDir, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// The preopen list is registered byte for byte, so it skips env expansion.
	cfg.Path = v.GetString("path")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("path", defaultConfig.Path)
	v.SetDefault("dirs", defaultConfig.Dirs)
	v.SetDefault("library", defaultConfig.Library)
	v.SetDefault("debug", defaultConfig.Debug)
	v.SetDefault("match", defaultConfig.Match)

	v.SetDefault("sandbox.enabled", defaultConfig.Sandbox.Enabled)
	v.SetDefault("sandbox.best_effort", defaultConfig.Sandbox.BestEffort)
	v.SetDefault("sandbox.read_only_dirs", defaultConfig.Sandbox.ReadOnlyDirs)
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
