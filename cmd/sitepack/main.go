package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/wolfeidau/sitepack/cmd/sitepack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build       commands.BuildCmd       `cmd:"" help:"Bundle entries and assemble pages"`
		Serve       commands.ServeCmd       `cmd:"" help:"Build and serve the output directory"`
		Validate    commands.ValidateCmd    `cmd:"" help:"Validate the project configuration"`
		PrintConfig commands.PrintConfigCmd `cmd:"" help:"Print the effective configuration"`
		Debug       bool                    `help:"Enable debug mode." env:"SITEPACK_DEBUG"`
		Version     kong.VersionFlag
	}
)

func main() {
	// a missing .env is normal, anything else is worth failing on
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("sitepack"),
		kong.Description("Bundle a multi-page site into hashed scripts, stylesheets and pages."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
