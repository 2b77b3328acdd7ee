package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mscno/yaml2props/pkg/document"
)

// Options configure Load.
type Options struct {
	// Schema selects the allowed tags. The zero value is DefaultSafe.
	Schema Schema
	// Filename is only used in error messages.
	Filename string
}

// Load parses data as a single YAML document and constructs its value under
// the selected schema. A stream without any document loads as nil.
//
// Anchors and aliases are supported, but an alias that refers to a node
// containing it is rejected: documents must be trees.
func Load(data []byte, opts Options) (any, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var root yaml.Node
	if err := decoder.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, newParseError(opts.Filename, err)
	}

	var next yaml.Node
	switch err := decoder.Decode(&next); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, newParseError(opts.Filename, err)
	default:
		return nil, &ParseError{
			Filename: opts.Filename,
			Line:     next.Line,
			Msg:      "expected a single document in the stream, but found more",
		}
	}

	l := &loader{
		schema:   opts.Schema,
		filename: opts.Filename,
		anchors:  make(map[*yaml.Node]any),
		building: make(map[*yaml.Node]bool),
	}
	return l.construct(&root)
}

type loader struct {
	schema   Schema
	filename string
	anchors  map[*yaml.Node]any
	building map[*yaml.Node]bool
}

func (l *loader) construct(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return l.construct(n.Content[0])
	case yaml.AliasNode:
		return l.alias(n)
	}

	if n.Anchor != "" {
		l.building[n] = true
		defer delete(l.building, n)
	}

	t, err := l.typeOf(n)
	if err != nil {
		return nil, err
	}
	v, err := l.build(n, t)
	if err != nil {
		return nil, err
	}

	if n.Anchor != "" {
		l.anchors[n] = v
	}
	return v, nil
}

func (l *loader) alias(n *yaml.Node) (any, error) {
	target := n.Alias
	if target == nil {
		return nil, &ParseError{Filename: l.filename, Line: n.Line, Msg: fmt.Sprintf("unidentified alias %q", n.Value)}
	}
	if v, ok := l.anchors[target]; ok {
		return v, nil
	}
	if l.building[target] {
		return nil, &ParseError{
			Filename: l.filename,
			Line:     n.Line,
			Msg:      fmt.Sprintf("alias *%s refers to a node that contains it, cyclic documents are not supported", n.Value),
		}
	}
	return l.construct(target)
}

// typeOf picks the tag definition for a node: the explicit tag if there is
// one, otherwise the node kind, the scalar style and implicit resolution.
func (l *loader) typeOf(n *yaml.Node) (*tagType, error) {
	if n.Style&yaml.TaggedStyle == 0 {
		switch n.Kind {
		case yaml.MappingNode:
			return mapType, nil
		case yaml.SequenceNode:
			return seqType, nil
		}
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			return strType, nil
		}
		return l.schema.resolve(n.Value), nil
	}

	t := l.schema.lookup(n.Tag)
	if t == nil {
		return nil, l.violation(n, n.Tag, "unknown tag")
	}
	if t.kind != n.Kind {
		return nil, l.violation(n, n.Tag, "tag cannot be applied to a %s", kindName(n.Kind))
	}
	return t, nil
}

func (l *loader) build(n *yaml.Node, t *tagType) (any, error) {
	switch t {
	case seqType:
		return l.sequence(n)
	case mapType:
		return l.mapping(n)
	case setType:
		return l.set(n)
	case omapType, pairsType:
		return l.pairs(n, t)
	}

	if !t.resolve(n.Value) {
		return nil, l.violation(n, t.tag, "cannot resolve %q", n.Value)
	}
	v, err := t.construct(n.Value)
	if err != nil {
		return nil, l.violation(n, t.tag, "cannot construct %q: %v", n.Value, err)
	}
	return v, nil
}

func (l *loader) sequence(n *yaml.Node) (any, error) {
	items := make([]any, 0, len(n.Content))
	for _, child := range n.Content {
		v, err := l.construct(child)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func (l *loader) mapping(n *yaml.Node) (any, error) {
	m := document.NewMapping()
	// Keys that came from a merge may be overridden once by an explicit key.
	merged := make(map[string]bool)

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]

		if l.isMergeKey(keyNode) {
			if err := l.merge(m, merged, valueNode); err != nil {
				return nil, err
			}
			continue
		}

		key, err := l.key(keyNode)
		if err != nil {
			return nil, err
		}
		value, err := l.construct(valueNode)
		if err != nil {
			return nil, err
		}
		if m.Has(key) && !merged[key] {
			return nil, l.duplicate(keyNode, key)
		}
		delete(merged, key)
		m.Set(key, value)
	}
	return m, nil
}

func (l *loader) isMergeKey(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || l.schema.lookup(tagMerge) == nil {
		return false
	}
	if n.Style&yaml.TaggedStyle != 0 {
		return n.Tag == tagMerge
	}
	return n.Style == 0 && n.Value == "<<"
}

func (l *loader) merge(dst *document.Mapping, merged map[string]bool, n *yaml.Node) error {
	v, err := l.construct(n)
	if err != nil {
		return err
	}
	sources := []any{v}
	if seq, ok := v.([]any); ok {
		sources = seq
	}
	for _, src := range sources {
		sm, ok := src.(*document.Mapping)
		if !ok {
			return l.violation(n, tagMerge, "cannot merge mappings; the provided source object is unacceptable")
		}
		for k, sv := range sm.All() {
			if !dst.Has(k) {
				dst.Set(k, sv)
				merged[k] = true
			}
		}
	}
	return nil
}

func (l *loader) key(n *yaml.Node) (string, error) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		return "", l.complexKey(n)
	}
	v, err := l.construct(n)
	if err != nil {
		return "", err
	}
	key, ok := document.KeyText(v)
	if !ok {
		return "", l.complexKey(n)
	}
	return key, nil
}

func (l *loader) set(n *yaml.Node) (any, error) {
	m := document.NewMapping()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		key, err := l.key(keyNode)
		if err != nil {
			return nil, err
		}
		value, err := l.construct(valueNode)
		if err != nil {
			return nil, err
		}
		if value != nil {
			return nil, l.violation(valueNode, tagSet, "set members cannot have values")
		}
		if m.Has(key) {
			return nil, l.duplicate(keyNode, key)
		}
		m.Set(key, nil)
	}
	return m, nil
}

// pairs builds !!omap and !!pairs sequences. Both are lists of single-entry
// mappings; omap keys must be unique. An omap keeps its entries as mappings,
// pairs become two-element sequences.
func (l *loader) pairs(n *yaml.Node, t *tagType) (any, error) {
	seen := make(map[string]bool)
	items := make([]any, 0, len(n.Content))
	for _, child := range n.Content {
		v, err := l.construct(child)
		if err != nil {
			return nil, err
		}
		entry, ok := v.(*document.Mapping)
		if !ok || entry.Len() != 1 {
			return nil, l.violation(child, t.tag, "each item must be a mapping with a single key")
		}
		key := entry.Keys()[0]
		value, _ := entry.Get(key)

		if t == pairsType {
			items = append(items, []any{key, value})
			continue
		}
		if seen[key] {
			return nil, l.duplicate(child, key)
		}
		seen[key] = true
		items = append(items, entry)
	}
	return items, nil
}

func (l *loader) violation(n *yaml.Node, tag, format string, args ...any) error {
	return &SchemaViolationError{
		Filename: l.filename,
		Line:     n.Line,
		Column:   n.Column,
		Tag:      tag,
		Schema:   l.schema,
		Msg:      fmt.Sprintf(format, args...),
	}
}

func (l *loader) duplicate(n *yaml.Node, key string) error {
	return &ParseError{Filename: l.filename, Line: n.Line, Msg: fmt.Sprintf("duplicated mapping key %q", key)}
}

func (l *loader) complexKey(n *yaml.Node) error {
	return &ParseError{Filename: l.filename, Line: n.Line, Msg: fmt.Sprintf("%s mapping keys are not supported", kindName(n.Kind))}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	}
	return "unknown"
}
