package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/sitepack/internal/config"
	"gopkg.in/yaml.v3"
)

type ValidateCmd struct {
	ConfigFlags `embed:""`

	out io.Writer `kong:"-"`
}

// Run reports every configuration problem, one per line.
func (v *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	out := writerOr(v.out, os.Stdout)

	cfg, err := v.load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errs {
				fmt.Fprintf(out, "invalid: %v\n", e)
			}
		}
		return err
	}

	fmt.Fprintf(out, "ok: %d entries, %d pages\n", len(cfg.Entry), len(cfg.Pages))
	return nil
}

type PrintConfigCmd struct {
	ConfigFlags `embed:""`

	out io.Writer `kong:"-"`
}

// Run prints the effective configuration as YAML, defaults applied.
func (p *PrintConfigCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := p.load()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(writerOr(p.out, os.Stdout))
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
