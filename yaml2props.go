// Package yaml2props converts YAML documents into Java .properties files.
//
// Nested mappings are flattened into dot-separated keys and every character
// outside printable ASCII is written as a \uXXXX escape, so the output is
// safe for the ISO-8859-1 encoding .properties files are read with.
// Sequences and nulls have no .properties form and are dropped.
package yaml2props

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mscno/yaml2props/pkg/fileutils"
	"github.com/mscno/yaml2props/pkg/properties"
	"github.com/mscno/yaml2props/pkg/yaml"
)

// Options select how YAML input is parsed. The zero value parses with the
// safe default schema.
type Options struct {
	// Unsafe selects the full default schema, which also accepts the
	// !!js/undefined, !!js/regexp and !!js/function tags. It only applies
	// when Schema is empty.
	Unsafe bool
	// Schema names the schema to use and overrides Unsafe. See yaml.ParseSchema.
	Schema string
	// Filename replaces the input path in error messages.
	Filename string
}

// Cache stores the lines of previously converted inputs.
type Cache interface {
	Lookup(schema yaml.Schema, data []byte) ([]string, bool, error)
	Store(schema yaml.Schema, data []byte, lines []string) error
}

// Converter turns YAML input into property lines. It is safe for concurrent use.
type Converter struct {
	schema   yaml.Schema
	filename string
	cache    Cache
	logger   *slog.Logger
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithCache makes the converter reuse results stored in cache.
func WithCache(cache Cache) ConverterOption {
	return func(c *Converter) {
		c.cache = cache
	}
}

// WithLogger sets the logger used for debug output and cache warnings.
func WithLogger(logger *slog.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// NewConverter validates opts and returns a converter for them. An unknown
// schema name fails here, before any input is read.
func NewConverter(opts Options, options ...ConverterOption) (*Converter, error) {
	schema, err := yaml.SelectSchema(opts.Schema, !opts.Unsafe)
	if err != nil {
		return nil, fmt.Errorf("yaml2props: %w", err)
	}
	c := &Converter{
		schema:   schema,
		filename: opts.Filename,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Schema returns the schema the converter parses with.
func (c *Converter) Schema() yaml.Schema {
	return c.schema
}

// Lines converts data into property lines. name identifies the input in
// error messages unless Options.Filename was set.
func (c *Converter) Lines(data []byte, name string) ([]string, error) {
	filename := c.filename
	if filename == "" {
		filename = name
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("yaml2props: %w", &EmptyInputError{Filename: filename})
	}

	if c.cache != nil {
		lines, ok, err := c.cache.Lookup(c.schema, data)
		switch {
		case err != nil:
			c.logger.Warn("cache lookup failed", "file", filename, "error", err)
		case ok:
			c.logger.Debug("cache hit", "file", filename, "lines", len(lines))
			return lines, nil
		}
	}

	doc, err := yaml.Load(data, yaml.Options{Schema: c.schema, Filename: filename})
	if err != nil {
		c.logger.Debug("yaml load failed", "file", filename, "schema", c.schema, "error", err)
		return nil, fmt.Errorf("yaml2props: %w", err)
	}
	lines := properties.Flatten(doc, "")
	c.logger.Debug("flattened document", "file", filename, "schema", c.schema, "lines", len(lines))

	if c.cache != nil {
		if err := c.cache.Store(c.schema, data, lines); err != nil {
			c.logger.Warn("cache store failed", "file", filename, "error", err)
		}
	}
	return lines, nil
}

// ConvertBytes converts data into the contents of a .properties file.
func (c *Converter) ConvertBytes(data []byte, name string) ([]byte, error) {
	lines, err := c.Lines(data, name)
	if err != nil {
		return nil, err
	}
	return properties.Join(lines), nil
}

// ConvertFile converts the YAML file at filePath and writes the result next
// to it, or into outDir when set, with the extension replaced by .properties.
// The output keeps the permissions of the input. Nothing is written when
// conversion fails.
func (c *Converter) ConvertFile(ctx context.Context, filePath, outDir string) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", 0, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return "", 0, err
	}

	out, err := c.ConvertBytes(data, filePath)
	if err != nil {
		return "", 0, err
	}

	outPath := fileutils.OutputPath(filePath, outDir)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", 0, err
		}
	}
	if err := os.WriteFile(outPath, out, info.Mode().Perm()); err != nil {
		return "", 0, err
	}
	c.logger.Debug("wrote properties file", "input", filePath, "output", outPath, "bytes", len(out))
	return outPath, len(out), nil
}

// Convert reads YAML from in and writes the .properties text to out.
func Convert(in io.Reader, out io.Writer, opts Options) (int, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return -1, err
	}
	c, err := NewConverter(opts)
	if err != nil {
		return -1, err
	}
	converted, err := c.ConvertBytes(data, opts.Filename)
	if err != nil {
		return -1, err
	}
	return out.Write(converted)
}

// ConvertFile converts the YAML file at filePath into a .properties file next
// to it and returns the output path and the number of bytes written.
func ConvertFile(filePath string, opts Options) (string, int, error) {
	c, err := NewConverter(opts)
	if err != nil {
		return "", -1, err
	}
	return c.ConvertFile(context.Background(), filePath, "")
}

// ConvertFS converts the named YAML file of fsys, typically an embed.FS, and
// returns the .properties text.
func ConvertFS(fsys fs.FS, name string, opts Options) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("error reading file from filesystem: %w", err)
	}
	c, err := NewConverter(opts)
	if err != nil {
		return nil, err
	}
	return c.ConvertBytes(data, filepath.ToSlash(name))
}

// OutputPath returns the .properties path ConvertFile writes for input.
func OutputPath(input, outDir string) string {
	return fileutils.OutputPath(input, outDir)
}
