// Package config loads the settings of corodemo from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of corodemo.
type Config struct {
	Log   Log  `yaml:"log" toml:"log"`
	Trace bool `yaml:"trace" toml:"trace"`
	Echo  Echo `yaml:"echo" toml:"echo"`
	Demo  Demo `yaml:"demo" toml:"demo"`
	Run   Run  `yaml:"run" toml:"run"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
}

type Echo struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type Demo struct {
	// Delay is how long the demos wait before signaling.
	Delay Duration `yaml:"delay" toml:"delay"`
	// Items is how many values the queue demo produces.
	Items int `yaml:"items" toml:"items"`
}

type Run struct {
	// Timeout bounds a whole run. Zero means no limit.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Log:  Log{Level: "info"},
		Echo: Echo{Addr: "127.0.0.1:9000"},
		Demo: Demo{Delay: Duration(500 * time.Millisecond), Items: 5},
	}
}

// Load reads path over the defaults. An empty path, or a path that does not
// exist, yields the defaults. The format follows the file extension.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Demo.Items < 0 {
		return fmt.Errorf("config: demo.items: negative count %d", c.Demo.Items)
	}
	if c.Demo.Delay < 0 || c.Run.Timeout < 0 {
		return errors.New("config: negative duration")
	}
	return nil
}

// Logger builds a zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	zc.DisableStacktrace = true
	return zc.Build()
}
