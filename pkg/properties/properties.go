// Package properties flattens parsed YAML documents into Java .properties lines.
package properties

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/mscno/yaml2props/pkg/document"
)

// Separator joins a key and its value on a property line.
const Separator = " = "

// Flatten walks doc depth-first and returns one "key = value" line for every
// string, number and boolean reachable through mappings. Keys of nested
// mappings are joined with "." onto prefix, which is empty for a top-level
// call.
//
// Only mappings emit lines: a scalar or sequence document yields nothing.
// Sequence and null values are skipped, and keys are used verbatim, so a key
// containing "." or "=" produces ambiguous output.
//
// Only *document.Mapping is walked, and lines follow its source order. No
// sorting is performed.
func Flatten(doc any, prefix string) []string {
	var lines []string
	each(doc, func(key string, value any) {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			lines = append(lines, fullKey+Separator+Escape(v))
		case *document.Mapping:
			lines = append(lines, Flatten(v, fullKey)...)
		default:
			if text, ok := document.ScalarText(v); ok {
				lines = append(lines, fullKey+Separator+text)
			}
		}
	})
	return lines
}

func each(doc any, fn func(key string, value any)) {
	m, ok := doc.(*document.Mapping)
	if !ok || m == nil {
		return
	}
	for k, v := range m.All() {
		fn(k, v)
	}
}

// Escape replaces every character outside the printable ASCII range
// [0x20, 0x7e] with a lowercase \uXXXX escape. Characters beyond the Basic
// Multilingual Plane are written as their UTF-16 surrogate pair.
func Escape(s string) string {
	i := strings.IndexFunc(s, needsEscape)
	if i < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 10)
	b.WriteString(s[:i])
	for _, r := range s[i:] {
		switch {
		case !needsEscape(r):
			b.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}

func needsEscape(r rune) bool {
	return r < 32 || r > 126
}

// Join packages lines as the contents of a .properties file.
func Join(lines []string) []byte {
	return []byte(strings.Join(lines, "\n"))
}
