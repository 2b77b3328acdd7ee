// Package config supplies flag defaults to the CLI from a TOML file and from
// .env files.
//
// A TOML configuration holds flag values at the top level and per command in
// a table named after the command path:
//
//	debug = true
//	schema = "core"
//
//	[convert]
//	jobs = 4
//	out_dir = "build/properties"
//
//	[serve]
//	addr = ":9090"
//
// A value in a command table wins over the top-level one. Flag names may be
// written with dashes or underscores.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes the environment variables the CLI reads flags from.
const EnvPrefix = "YAML2PROPS"

// TOML is a kong.ConfigurationLoader reading flag values from a TOML document.
func TOML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid toml config: %w", err)
	}

	var resolver kong.ResolverFunc = func(context *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		var path []string
		if parent != nil && parent.Node() != nil {
			path = strings.Fields(parent.Node().Path())
		}
		raw, ok := Lookup(values, path, flag.Name)
		if !ok {
			return nil, nil
		}
		return stringify(raw)
	}
	return resolver, nil
}

// Lookup finds the value for flag in the table at path, falling back to each
// enclosing table up to the top level.
func Lookup(values map[string]any, path []string, flag string) (any, bool) {
	for i := len(path); i >= 0; i-- {
		table, ok := tableAt(values, path[:i])
		if !ok {
			continue
		}
		for _, name := range flagNames(flag) {
			if v, ok := table[name]; ok {
				if _, isTable := v.(map[string]any); isTable {
					continue
				}
				return v, true
			}
		}
	}
	return nil, false
}

func tableAt(values map[string]any, path []string) (map[string]any, bool) {
	table := values
	for _, part := range path {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil, false
		}
		table = next
	}
	return table, true
}

func flagNames(flag string) []string {
	names := []string{flag}
	if snake := strings.ReplaceAll(flag, "-", "_"); snake != flag {
		names = append(names, snake)
	}
	return names
}

func stringify(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return fmt.Sprint(v), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	}
	return "", fmt.Errorf("unsupported config value of type %T", v)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}
	return nil
}
