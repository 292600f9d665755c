// Package config loads penalty-matrix settings from defaults, an optional YAML
// file, and PENALTY_MATRIX_* environment variables, in that order.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// PENALTY_MATRIX_OUTPUT_DIR sets output_dir.
const EnvPrefix = "PENALTY_MATRIX_"

// Config represents the application configuration.
type Config struct {
	ScheduleFile string        `koanf:"schedule_file" yaml:"schedule_file,omitempty"`
	OutputDir    string        `koanf:"output_dir" yaml:"output_dir" validate:"required"`
	Formats      []string      `koanf:"formats" yaml:"formats" validate:"required,min=1,dive,oneof=json csv markdown"`
	LogLevel     string        `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile  string        `koanf:"metrics_file" yaml:"metrics_file,omitempty"`
	FetchTimeout time.Duration `koanf:"fetch_timeout" yaml:"fetch_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() (cfg Config) {
	cfg = Config{
		OutputDir:    "./reports",
		Formats:      []string{"json", "csv"},
		LogLevel:     "info",
		FetchTimeout: 30 * time.Second,
	}
	return cfg
}

// DefaultPath returns $HOME/.penalty-matrix/config.yaml.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}

	path = filepath.Join(homeDir, ".penalty-matrix", "config.yaml")
	return path, err
}

// Load layers defaults, the config file and the environment. An explicit
// configPath must exist; the default file is optional.
func Load(configPath string) (cfg Config, err error) {
	k := koanf.New(".")

	defaults := Default()
	err = k.Load(structs.Provider(defaults, "koanf"), nil)
	if err != nil {
		err = errors.Wrap(err, "failed to load config defaults")
		return cfg, err
	}

	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			err = errors.Wrapf(err, "failed to parse config file: %s", path)
			return cfg, err
		}
	case os.IsNotExist(err) && configPath == "":
		err = nil
	case os.IsNotExist(err):
		err = errors.Errorf("config file not found: %s (run 'penalty-matrix init' to create)", path)
		return cfg, err
	default:
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return cfg, err
	}

	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		err = errors.Wrap(err, "failed to load environment overrides")
		return cfg, err
	}

	err = k.Unmarshal("", &cfg)
	if err != nil {
		err = errors.Wrap(err, "failed to decode config")
		return cfg, err
	}

	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

// Validate checks field constraints and that a configured schedule file
// exists.
func (c *Config) Validate() (err error) {
	err = validator.New().Struct(c)
	if err != nil {
		return err
	}

	if c.ScheduleFile != "" {
		_, err = os.Stat(c.ScheduleFile)
		if os.IsNotExist(err) {
			err = errors.Errorf("schedule file not found: %s", c.ScheduleFile)
			return err
		}
	}

	err = nil
	return err
}

// InitConfig writes the default configuration file. It refuses to overwrite.
func InitConfig(configPath string) (path string, err error) {
	path = configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return path, err
		}
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return path, err
	}

	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return path, err
	}

	var data []byte
	data, err = yamlv3.Marshal(Default())
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return path, err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return path, err
	}

	return path, err
}
