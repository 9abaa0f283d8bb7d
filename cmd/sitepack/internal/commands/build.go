package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/sitepack/internal/assets"
	"github.com/wolfeidau/sitepack/internal/logger"
)

type BuildCmd struct {
	ConfigFlags `embed:""`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Str("config", b.Config).Msg("Starting build")

	cfg, err := b.load()
	if err != nil {
		return err
	}

	pipeline, err := assets.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create asset pipeline: %w", err)
	}

	res, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}

	for _, name := range cfg.EntryNames() {
		bundle, _ := res.Bundle(name)
		log.Info().
			Str("entry", name).
			Str("script", bundle.Script).
			Str("stylesheet", bundle.Stylesheet).
			Int64("bytes", bundle.Size).
			Msg("Bundle")
	}

	log.Info().Str("output", cfg.Output.Path).Strs("pages", res.Pages).Msg("Build finished")
	return nil
}
