package yaml2props

import (
	"errors"
	"fmt"

	"github.com/mscno/yaml2props/pkg/yaml"
)

// Errors produced while parsing, re-exported so callers only need this package.
type (
	ParseError           = yaml.ParseError
	SchemaViolationError = yaml.SchemaViolationError
	UnknownSchemaError   = yaml.UnknownSchemaError
)

// EmptyInputError reports zero-length input. Empty input never reaches the
// YAML parser.
type EmptyInputError struct {
	Filename string
}

func (e *EmptyInputError) Error() string {
	if e.Filename == "" {
		return "input is empty, YAML loader cannot load empty content"
	}
	return fmt.Sprintf("file %s is empty, YAML loader cannot load empty content", e.Filename)
}

// ErrorKind classifies err for reporting.
type ErrorKind string

const (
	KindEmptyInput      ErrorKind = "empty_input"
	KindParse           ErrorKind = "parse"
	KindSchemaViolation ErrorKind = "schema_violation"
	KindUnknownSchema   ErrorKind = "unknown_schema"
	KindOther           ErrorKind = "other"
)

// KindOf returns the kind of a conversion error, or "" for nil.
func KindOf(err error) ErrorKind {
	var (
		empty     *EmptyInputError
		parse     *ParseError
		violation *SchemaViolationError
		unknown   *UnknownSchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &empty):
		return KindEmptyInput
	case errors.As(err, &violation):
		return KindSchemaViolation
	case errors.As(err, &parse):
		return KindParse
	case errors.As(err, &unknown):
		return KindUnknownSchema
	}
	return KindOther
}
