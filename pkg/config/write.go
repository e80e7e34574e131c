package config

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

var _ io.WriterTo = (*Config)(nil)
var _ yaml.BytesMarshaler = (*Config)(nil)

func (cfg Config) MarshalYAML() ([]byte, error) {
	b, err := yaml.Marshal((config)(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to serialize data %#+v: %w", cfg, err)
	}
	return b, nil
}

func (cfg Config) WriteTo(w io.Writer) (int64, error) {
	b, err := cfg.MarshalYAML()
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, bytes.NewReader(b))
	if err != nil {
		return n, fmt.Errorf("unable to write: %w", err)
	}
	return n, nil
}
