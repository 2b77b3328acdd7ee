package commands

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/mscno/yaml2props"
	"github.com/mscno/yaml2props/server"
)

type ServeCmd struct {
	Addr           string        `help:"Address to listen on" default:":8080"`
	Schema         string        `help:"Default YAML schema for requests without a schema parameter" short:"s"`
	Safe           bool          `help:"Reject tags that construct JavaScript values unless a request sets safe=false" default:"true" negatable:""`
	RateInterval   time.Duration `help:"Minimum interval between requests per client once the burst is used" default:"200ms"`
	RateBurst      int           `help:"Requests a client may send in a burst" default:"20"`
	AllowedOrigins []string      `help:"Origins allowed by CORS" default:"*"`
	MaxBodyBytes   int64         `help:"Maximum request body size in bytes" default:"1048576"`
	Cache          string        `help:"Path of a conversion cache database"`
}

func (c *ServeCmd) Run(ctx *cliCtx) error {
	opts := yaml2props.Options{Schema: c.Schema, Unsafe: !c.Safe}
	if _, err := yaml2props.NewConverter(opts); err != nil {
		return err
	}

	handlerOpts := []server.HandlerOption{
		server.WithDefaults(opts),
		server.WithMaxBodyBytes(c.MaxBodyBytes),
	}
	cache, closeCache, err := openCache(ctx, c.Cache)
	if err != nil {
		return err
	}
	defer closeCache()
	if cache != nil {
		handlerOpts = append(handlerOpts, server.WithCache(cache))
	}

	limit := rate.Inf
	if c.RateInterval > 0 {
		limit = rate.Every(c.RateInterval)
	}
	s := server.New(server.NewHandler(ctx.Logger, handlerOpts...), server.Config{
		Addr:           c.Addr,
		RateLimit:      limit,
		RateBurst:      c.RateBurst,
		AllowedOrigins: c.AllowedOrigins,
	}, ctx.Logger)

	ctx.Logger.Info("starting server", "addr", c.Addr, "schema", opts.Schema, "safe", c.Safe)
	return s.ListenAndServe(ctx)
}
