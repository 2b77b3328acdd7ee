// Package yaml loads YAML text into document values under a selectable schema.
//
// A schema decides which tags a document may use and how untagged plain
// scalars are resolved. The safe schemas never construct JavaScript-specific
// values; DefaultFull accepts them but only as inert data.
package yaml

import (
	"fmt"
	"strings"
)

// Schema is one of the supported tag sets.
type Schema int

const (
	// DefaultSafe extends Core with timestamps, merge keys, binary, omap, pairs and set.
	DefaultSafe Schema = iota
	// DefaultFull extends DefaultSafe with !!js/undefined, !!js/regexp and !!js/function.
	DefaultFull
	// Core is the YAML 1.2 core schema.
	Core
	// JSON is the YAML 1.2 JSON schema. It resolves scalars the same way as Core.
	JSON
	// Failsafe only knows strings, sequences and mappings.
	Failsafe
)

// Schemas returns every schema in declaration order.
func Schemas() []Schema {
	return []Schema{DefaultSafe, DefaultFull, Core, JSON, Failsafe}
}

var schemaNames = map[Schema]string{
	DefaultSafe: "default_safe",
	DefaultFull: "default_full",
	Core:        "core",
	JSON:        "json",
	Failsafe:    "failsafe",
}

func (s Schema) String() string {
	if name, ok := schemaNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Schema(%d)", int(s))
}

// Safe reports whether the schema rejects code-construction tags.
func (s Schema) Safe() bool {
	return s != DefaultFull
}

// Tags returns the tags the schema accepts, in a stable order.
func (s Schema) Tags() []string {
	var tags []string
	for _, t := range s.types() {
		tags = append(tags, t.tag)
	}
	return tags
}

// ParseSchema looks a schema up by name. Names are case-insensitive, may use
// "-" instead of "_" and may carry a "_schema" suffix, so "DEFAULT_SAFE_SCHEMA",
// "default-safe" and "default_safe" are the same schema.
func ParseSchema(name string) (Schema, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.TrimSuffix(n, "_schema")
	for s, sn := range schemaNames {
		if n == sn {
			return s, nil
		}
	}
	return 0, &UnknownSchemaError{Name: name}
}

// SelectSchema resolves the schema option pair used by callers: a non-empty
// name always wins, otherwise safe picks DefaultSafe over DefaultFull.
func SelectSchema(name string, safe bool) (Schema, error) {
	if name != "" {
		return ParseSchema(name)
	}
	if safe {
		return DefaultSafe, nil
	}
	return DefaultFull, nil
}

// types lists the tag definitions of the schema. Implicit resolution tries
// the scalar types in this order.
func (s Schema) types() []*tagType {
	switch s {
	case Failsafe:
		return failsafeTypes
	case JSON:
		return jsonTypes
	case Core:
		return coreTypes
	case DefaultSafe:
		return defaultSafeTypes
	case DefaultFull:
		return defaultFullTypes
	}
	return nil
}

func (s Schema) lookup(tag string) *tagType {
	for _, t := range s.types() {
		if t.tag == tag {
			return t
		}
	}
	return nil
}

// resolve returns the tag of an untagged plain scalar.
func (s Schema) resolve(value string) *tagType {
	for _, t := range s.types() {
		if t.implicit && t.resolve(value) {
			return t
		}
	}
	return strType
}
