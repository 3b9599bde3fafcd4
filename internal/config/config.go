package config

import (
	"bytes"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Terminal TerminalConfig `yaml:"terminal"`
}

func MustLoad(configPath string) *Config {
	if configPath == "" {
		panic("config path is empty")
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		panic("failed to read data from config file: " + configPath)
	}

	cfg, err := Parse(data)
	if err != nil {
		panic("cannot read config: " + err.Error())
	}

	return cfg
}

// Parse decodes YAML after expanding ${VARS}, then applies env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := cleanenv.ParseYAML(bytes.NewReader(data), &cfg); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
