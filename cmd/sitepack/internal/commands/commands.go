package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wolfeidau/sitepack/internal/config"
)

const defaultConfigFile = "sitepack.yaml"

type Globals struct {
	Debug   bool
	Version string
}

// ConfigFlags locate the project file and override selected settings.
type ConfigFlags struct {
	Config string `help:"path to the project file, built-in defaults are used when the default file is absent" default:"sitepack.yaml" env:"SITEPACK_CONFIG" type:"path"`
	Mode   string `help:"build mode override (development or production)" default:"" env:"SITEPACK_MODE"`
	Output string `help:"output directory override" default:"" env:"SITEPACK_OUTPUT" type:"path"`
}

// load reads the project file, applies overrides and validates the result.
func (f *ConfigFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.Config)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && filepath.Base(f.Config) == defaultConfigFile:
		root, werr := os.Getwd()
		if werr != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", werr)
		}
		cfg = config.Default(root)
	default:
		return nil, err
	}

	if f.Mode != "" {
		cfg.Mode = config.Mode(f.Mode)
	}
	if f.Output != "" {
		abs, err := filepath.Abs(f.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
		if cfg.DevServer.Directory == cfg.Output.Path {
			cfg.DevServer.Directory = abs
		}
		cfg.Output.Path = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
