package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mscno/yaml2props"
	"github.com/mscno/yaml2props/pkg/batch"
	"github.com/mscno/yaml2props/pkg/fileutils"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

type ConvertCmd struct {
	Paths    []string `arg:"" optional:"" help:"YAML files or directories to convert. Reads stdin when empty or '-'."`
	Schema   string   `help:"YAML schema: default_safe, default_full, core, json or failsafe. Overrides --safe." short:"s"`
	Safe     bool     `help:"Reject tags that construct JavaScript values" default:"true" negatable:""`
	Filename string   `help:"Name used for the input in error messages"`
	OutDir   string   `help:"Write .properties files into this directory instead of next to the input" short:"o"`
	Stdout   bool     `help:"Print the properties instead of writing files"`
	Jobs     int      `help:"Number of files converted in parallel, 0 for one per CPU" default:"0" short:"j"`
	Cache    string   `help:"Path of a conversion cache database"`
}

func (c *ConvertCmd) Run(ctx *cliCtx) error {
	cache, closeCache, err := openCache(ctx, c.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	converterOpts := []yaml2props.ConverterOption{yaml2props.WithLogger(ctx.Logger)}
	if cache != nil {
		converterOpts = append(converterOpts, yaml2props.WithCache(cache))
	}
	conv, err := yaml2props.NewConverter(options(c.Schema, c.Safe, c.Filename), converterOpts...)
	if err != nil {
		return err
	}
	ctx.Logger.Debug("converting", "schema", conv.Schema(), "paths", c.Paths)

	if len(c.Paths) == 0 || (len(c.Paths) == 1 && c.Paths[0] == "-") {
		return convertStdin(conv)
	}

	inputs, err := fileutils.Discover(c.Paths...)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no YAML files found in %v", c.Paths)
	}

	if c.Stdout {
		return c.printAll(ctx, conv, inputs)
	}

	report := batch.Run(ctx, inputs, c.Jobs, func(ctx context.Context, input string) (string, int, error) {
		return conv.ConvertFile(ctx, input, c.OutDir)
	})
	printReport(report)
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to convert: %w", len(failed), len(inputs), report.Err())
	}
	return nil
}

func convertStdin(conv *yaml2props.Converter) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	out, err := conv.ConvertBytes(data, "stdin")
	if err != nil {
		return err
	}
	if len(out) > 0 {
		fmt.Println(string(out))
	}
	return nil
}

// printAll converts inputs in parallel and prints the results in input order.
func (c *ConvertCmd) printAll(ctx *cliCtx, conv *yaml2props.Converter, inputs []string) error {
	var results sync.Map
	report := batch.Run(ctx, inputs, c.Jobs, func(_ context.Context, input string) (string, int, error) {
		data, err := os.ReadFile(input)
		if err != nil {
			return "", 0, err
		}
		out, err := conv.ConvertBytes(data, input)
		if err != nil {
			return "", 0, err
		}
		results.Store(input, out)
		return "", len(out), nil
	})

	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", failColor.Sprint("✗"), o.Input, o.Err)
			continue
		}
		if len(inputs) > 1 {
			fmt.Println(dimColor.Sprintf("# %s", o.Input))
		}
		out, _ := results.Load(o.Input)
		if b := out.([]byte); len(b) > 0 {
			fmt.Println(string(b))
		}
	}
	return report.Err()
}

func printReport(report *batch.Report) {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Printf("%s %s: %v\n", failColor.Sprint("✗"), o.Input, o.Err)
			continue
		}
		fmt.Printf("%s %s -> %s %s\n", okColor.Sprint("✓"), o.Input, o.Output,
			dimColor.Sprintf("(%s, %s)", humanize.Bytes(uint64(o.Bytes)), o.Duration.Round(time.Microsecond)))
	}
	fmt.Printf("Converted %d of %d files (%s)\n",
		report.Succeeded(), len(report.Outcomes), humanize.Bytes(uint64(report.Bytes())))
}
