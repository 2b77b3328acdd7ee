package yaml

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports malformed YAML.
type ParseError struct {
	Filename string
	Line     int
	Msg      string
	Err      error
}

func (e *ParseError) Error() string {
	return "invalid yaml: " + location(e.Filename, e.Line, 0) + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaViolationError reports a node the selected schema does not allow,
// either because its tag is outside the schema or because its value cannot be
// constructed as that tag.
type SchemaViolationError struct {
	Filename string
	Line     int
	Column   int
	Tag      string
	Schema   Schema
	Msg      string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %s%s (tag %s, schema %s)",
		location(e.Filename, e.Line, e.Column), e.Msg, e.Tag, e.Schema)
}

// UnknownSchemaError reports a schema name ParseSchema does not recognize.
type UnknownSchemaError struct {
	Name string
}

func (e *UnknownSchemaError) Error() string {
	names := make([]string, 0, len(schemaNames))
	for _, s := range Schemas() {
		names = append(names, s.String())
	}
	return fmt.Sprintf("schema %q is not valid, expected one of %s", e.Name, strings.Join(names, ", "))
}

func location(filename string, line, column int) string {
	var b strings.Builder
	if filename != "" {
		b.WriteString(filename)
		b.WriteString(":")
	}
	if line > 0 {
		b.WriteString(strconv.Itoa(line))
		b.WriteString(":")
		if column > 0 {
			b.WriteString(strconv.Itoa(column))
			b.WriteString(":")
		}
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	return b.String()
}

// yaml.v3 reports syntax errors as "yaml: line N: message".
var lineRe = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

func newParseError(filename string, err error) *ParseError {
	pe := &ParseError{Filename: filename, Msg: strings.TrimPrefix(err.Error(), "yaml: "), Err: err}
	if m := lineRe.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
		pe.Msg = m[2]
	}
	return pe
}
