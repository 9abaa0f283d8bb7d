package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/sitepack/internal/assets"
	"github.com/wolfeidau/sitepack/internal/devserver"
	"github.com/wolfeidau/sitepack/internal/logger"
)

type ServeCmd struct {
	ConfigFlags `embed:""`

	Host   string `help:"listen host override" default:"" env:"SITEPACK_HOST"`
	Port   int    `help:"listen port override" default:"0" env:"SITEPACK_PORT"`
	NoOpen bool   `help:"do not open a browser" default:"false" env:"SITEPACK_NO_OPEN"`
	Hot    bool   `help:"rebuild when sources change" default:"false" env:"SITEPACK_HOT"`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Str("config", s.Config).Msg("Starting dev server")

	cfg, err := s.load()
	if err != nil {
		return err
	}

	if s.Host != "" {
		cfg.DevServer.Host = s.Host
	}
	if s.Port != 0 {
		cfg.DevServer.Port = s.Port
	}
	if s.NoOpen {
		cfg.DevServer.Open = false
	}
	if s.Hot {
		cfg.DevServer.Hot = true
	}

	pipeline, err := assets.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create asset pipeline: %w", err)
	}

	// with hot rebuilds a broken initial build can be fixed while serving
	if _, err := pipeline.Build(ctx); err != nil {
		if !cfg.DevServer.Hot {
			return err
		}
		log.Warn().Err(err).Msg("Initial build failed")
	}

	return devserver.New(cfg, pipeline).Run(ctx)
}
