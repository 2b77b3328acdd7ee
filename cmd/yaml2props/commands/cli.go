package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/mscno/yaml2props"
	"github.com/mscno/yaml2props/pkg/cache"
	"github.com/mscno/yaml2props/pkg/config"
)

const defaultConfigFile = "yaml2props.toml"

type cliCtx struct {
	Logger  *slog.Logger
	Version string
	context.Context
}

type cli struct {
	Debug  bool            `help:"Enable debug logging" env:"YAML2PROPS_DEBUG"`
	Config kong.ConfigFlag `help:"TOML file with flag defaults"`

	Convert ConvertCmd `cmd:"" help:"Convert YAML files into .properties files"`
	Schemas SchemasCmd `cmd:"" help:"List the YAML schemas and the tags they accept"`
	Serve   ServeCmd   `cmd:"" help:"Serve conversions over HTTP"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

func Execute(version string) {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("yaml2props"),
		kong.Description("yaml2props converts YAML files into Java .properties files"),
		kong.Configuration(config.TOML, defaultConfigFile),
		kong.DefaultEnvars(config.EnvPrefix),
		kong.Vars{"version": version},
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ctx.Run(&cliCtx{Logger: newLogger(cli.Debug), Version: version, Context: runCtx})
	ctx.FatalIfErrorf(err)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func options(schema string, safe bool, filename string) yaml2props.Options {
	return yaml2props.Options{Schema: schema, Unsafe: !safe, Filename: filename}
}

// openCache opens the cache at path. It returns a nil cache when path is empty.
func openCache(ctx *cliCtx, path string) (yaml2props.Cache, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	c, err := cache.Open(path)
	if err != nil {
		return nil, nil, err
	}
	ctx.Logger.Debug("using conversion cache", "path", path)
	closeFn := func() {
		if err := c.Close(); err != nil {
			ctx.Logger.Warn("failed to close cache", "path", path, "error", err)
		}
	}
	return c, closeFn, nil
}
