package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	Format    string `toml:"format"`
	// logging
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
	LogJSON     bool   `toml:"log_json"`
	LogToStdout bool   `toml:"log_to_stdout"`
	// reference markers applied before the command line ones, e.g. "--running_avgHr=150"
	Markers []string `toml:"markers"`
}

func Default() *Config {
	return &Config{
		InputDir:    ".",
		OutputDir:   ".",
		Format:      "csv",
		LogLevel:    "info",
		LogToStdout: true,
	}
}

// Load reads a TOML config file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unsupported format %q (expected csv|parquet)", c.Format)
	}
	return nil
}
