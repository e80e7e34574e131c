package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
)

var _ io.ReaderFrom = (*Config)(nil)
var _ yaml.BytesUnmarshaler = (*Config)(nil)

// config exists to unmarshal without recursing into UnmarshalYAML.
type config Config

func (cfg *Config) UnmarshalYAML(b []byte) error {
	if err := yaml.Unmarshal(b, (*config)(cfg)); err != nil {
		return fmt.Errorf("unable to unserialize data: %w", err)
	}
	return nil
}

func (cfg *Config) ReadFrom(r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("unable to read: %w", err)
	}
	return int64(len(b)), cfg.UnmarshalYAML(b)
}

// ReadFromPath loads the config from the file; a missing file yields the
// defaults.
func ReadFromPath(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return cfg, nil
	default:
		return cfg, fmt.Errorf("unable to read the config file '%s': %w", path, err)
	}
	if err := cfg.UnmarshalYAML(b); err != nil {
		return cfg, fmt.Errorf("unable to parse the config file '%s': %w", path, err)
	}
	return cfg, nil
}

// WriteToPath serializes the config to the file.
func WriteToPath(cfg Config, path string, perm fs.FileMode) error {
	b, err := cfg.MarshalYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, perm); err != nil {
		return fmt.Errorf("unable to write the config file '%s': %w", path, err)
	}
	return nil
}
