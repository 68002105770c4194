package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// EnvConfigFile overrides the location of the config file.
const EnvConfigFile = "SH33_CONFIG"

type Config struct {
	// Prompt turns the prompt on. It is only shown when stdin is a terminal.
	Prompt     bool   `yaml:"prompt"`
	PromptText string `yaml:"prompt_text" validate:"required"`
	Color      bool   `yaml:"color"`
	// RedirectMode is the permission used when "<" or ">" creates a file.
	RedirectMode uint32 `yaml:"redirect_mode" validate:"lte=511"`
}

func Default() *Config {
	return &Config{
		Prompt:       true,
		PromptText:   "33sh> ",
		Color:        true,
		RedirectMode: 0600,
	}
}

// Path returns the config file location: $SH33_CONFIG if set, otherwise
// sh33/config.yml under the user config directory.
func Path() (string, error) {
	if file := os.Getenv(EnvConfigFile); file != "" {
		return file, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sh33", "config.yml"), nil
}

// Load reads file over the defaults. A missing file is not an error.
func Load(file string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	return validate.Struct(c)
}

func (c *Config) FileMode() os.FileMode {
	return os.FileMode(c.RedirectMode) & os.ModePerm
}
