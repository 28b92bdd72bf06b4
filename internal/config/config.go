// Package config loads nbterm settings from a YAML file with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// RootEnv overrides the directory nbterm browses (for testing and scripts).
const RootEnv = "NBTERM_ROOT"

// colorPattern accepts hex colors and ANSI 256 color numbers.
var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[0-9]{1,3})$`)

// Config is the top level configuration.
type Config struct {
	Root  string      `yaml:"root"`
	Log   LogConfig   `yaml:"log"`
	Theme ThemeConfig `yaml:"theme"`
}

// LogConfig controls the log file. An empty Path disables logging.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ThemeConfig holds the theming overrides the prompt and icon read.
type ThemeConfig struct {
	PromptWidth int    `yaml:"prompt_width"`
	PromptFG    string `yaml:"prompt_fg"`
	PromptBG    string `yaml:"prompt_bg"`
	IconColor   string `yaml:"icon_color"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root: ".",
		Log:  LogConfig{Level: zerolog.InfoLevel.String()},
		Theme: ThemeConfig{
			PromptWidth: 7,
			PromptFG:    "#000000",
			PromptBG:    "#fafafa",
			IconColor:   "#0366d6",
		},
	}
}

// Validate implements validation.Validatable.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Theme.Validate(); err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	return nil
}

// Validate checks the level parses.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if s == "" {
				return nil
			}
			_, err := zerolog.ParseLevel(s)
			return err
		})),
	)
}

// Validate checks widths and colors.
func (c *ThemeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PromptWidth, validation.Min(3), validation.Max(20)),
		validation.Field(&c.PromptFG, validation.Match(colorPattern)),
		validation.Field(&c.PromptBG, validation.Match(colorPattern)),
		validation.Field(&c.IconColor, validation.Match(colorPattern)),
	)
}

// Load reads filename over the defaults, expanding ${VAR} references, and
// validates the result. A missing file is not an error when optional is set.
// NBTERM_ROOT, when set, wins over the file.
func Load(filename string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist) && optional:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if root := os.Getenv(RootEnv); root != "" {
		cfg.Root = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
