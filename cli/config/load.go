package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/knotfold/types"
)

// Load reads and validates a config file. Every error it returns matches
// types.ErrConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, types.NewError(types.CodeConfig, path, "config file not found")
	case err != nil:
		return nil, types.WrapError(types.CodeConfig, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, types.WrapError(types.CodeConfig, path, err)
	}
	return cfg, nil
}

// Parse expands ${VAR} references, then decodes strictly: a key the
// Config does not declare is an error. An empty document is a zero Config.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(strings.NewReader(ExpandEnv(string(data))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
