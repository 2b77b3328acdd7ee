// Package fileutils provides utilities for recognizing and renaming YAML input files.
package fileutils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileFormat represents a file extension the converter knows about.
type FileFormat string

const (
	// Yaml represents the .yaml extension.
	Yaml FileFormat = ".yaml"
	// Yml represents the .yml extension.
	Yml FileFormat = ".yml"
	// Properties represents the .properties output extension.
	Properties FileFormat = ".properties"
)

// ValidFormats returns the input formats that are converted.
func ValidFormats() []FileFormat {
	return []FileFormat{Yaml, Yml}
}

// ParseFormat determines the input format from a filename or a bare
// extension. It accepts "yaml", ".yml", "config.YAML" or "/path/to/app.yml".
func ParseFormat(input string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(input))
	if ext == "" {
		ext = "." + strings.ToLower(strings.TrimPrefix(input, "."))
	}
	for _, format := range ValidFormats() {
		if ext == string(format) {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", input)
}

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	_, err := ParseFormat(filepath.Ext(path))
	return err == nil && filepath.Ext(path) != ""
}

// ReplaceExtension swaps the last extension of path for ext, or appends ext
// when path has none. An empty path is returned unchanged.
func ReplaceExtension(path string, ext FileFormat) string {
	if path == "" {
		return path
	}
	dir, base := filepath.Split(path)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + string(ext)
	return filepath.Join(dir, base)
}

// OutputPath returns where the converted form of input is written: next to
// the input, or inside outDir when it is set.
func OutputPath(input, outDir string) string {
	out := ReplaceExtension(input, Properties)
	if outDir == "" {
		return out
	}
	return filepath.Join(outDir, filepath.Base(out))
}

// Discover expands roots into a sorted list of YAML files. Files are taken as
// given, whatever their extension; directories are walked recursively for
// .yaml and .yml files, skipping hidden directories below the root.
func Discover(roots ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsYAML(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}
