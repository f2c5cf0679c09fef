package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// configEnv names the environment variable holding the config file path.
const configEnv = "FLATFILE_CONFIG"

// Config holds the defaults of the flatfile command. Flags given on the
// command line take precedence.
type Config struct {
	// Encoding is the IANA name of the fixed-width data's character set.
	Encoding   string   `yaml:"encoding"`
	Output     string   `yaml:"output"`
	Codepoints bool     `yaml:"codepoints"`
	SchemaDirs []string `yaml:"schema_dirs"`
	Logging    Logging  `yaml:"logging"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Output: "json",
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig reads the configuration at path. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return config, nil
}
