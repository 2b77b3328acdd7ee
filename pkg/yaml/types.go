package yaml

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mscno/yaml2props/pkg/document"
)

// Tags, in the short form yaml.v3 reports them.
const (
	tagStr        = "!!str"
	tagSeq        = "!!seq"
	tagMap        = "!!map"
	tagNull       = "!!null"
	tagBool       = "!!bool"
	tagInt        = "!!int"
	tagFloat      = "!!float"
	tagTimestamp  = "!!timestamp"
	tagMerge      = "!!merge"
	tagBinary     = "!!binary"
	tagOmap       = "!!omap"
	tagPairs      = "!!pairs"
	tagSet        = "!!set"
	tagJSUndef    = "!!js/undefined"
	tagJSRegexp   = "!!js/regexp"
	tagJSFunction = "!!js/function"
)

// tagType describes how a schema handles one tag. Scalar types carry a
// resolve predicate, which gates both implicit resolution and explicitly
// tagged values, and a constructor. Collection types are built by the loader.
type tagType struct {
	tag       string
	kind      yaml.Kind
	implicit  bool
	resolve   func(string) bool
	construct func(string) (any, error)
}

func matcher(expr string) func(string) bool {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

func always(string) bool { return true }

var (
	strType = &tagType{tag: tagStr, kind: yaml.ScalarNode, resolve: always, construct: func(s string) (any, error) { return s, nil }}
	seqType = &tagType{tag: tagSeq, kind: yaml.SequenceNode}
	mapType = &tagType{tag: tagMap, kind: yaml.MappingNode}

	coreNullType = &tagType{
		tag: tagNull, kind: yaml.ScalarNode, implicit: true,
		resolve:   matcher(`^(?:~|null|Null|NULL|)$`),
		construct: constructNull,
	}
	coreBoolType = &tagType{
		tag: tagBool, kind: yaml.ScalarNode, implicit: true,
		resolve:   matcher(`^(?:true|True|TRUE|false|False|FALSE)$`),
		construct: constructBool,
	}
	coreIntType = &tagType{
		tag: tagInt, kind: yaml.ScalarNode, implicit: true,
		resolve:   matcher(`^(?:[-+]?[0-9]+|0o[0-7]+|0x[0-9a-fA-F]+)$`),
		construct: constructCoreInt,
	}
	coreFloatType = &tagType{
		tag: tagFloat, kind: yaml.ScalarNode, implicit: true,
		resolve:   matcher(`^(?:[-+]?(?:\.[0-9]+|[0-9]+(?:\.[0-9]*)?)(?:[eE][-+]?[0-9]+)?|[-+]?\.(?:inf|Inf|INF)|\.(?:nan|NaN|NAN))$`),
		construct: constructCoreFloat,
	}

	extIntType = &tagType{
		tag: tagInt, kind: yaml.ScalarNode, implicit: true,
		resolve: noTrailingUnderscore(matcher(`^(?:[-+]?0b[01_]+|[-+]?0x[0-9a-fA-F_]+|[-+]?0o[0-7_]+|[-+]?0[0-7_]+|[-+]?(?:0|[1-9][0-9_]*)|[-+]?[1-9][0-9_]*(?::[0-5]?[0-9])+)$`)),
		construct: constructExtInt,
	}
	extFloatType = &tagType{
		tag: tagFloat, kind: yaml.ScalarNode, implicit: true,
		resolve:   noTrailingUnderscore(matcher(`^(?:[-+]?(?:0|[1-9][0-9_]*)(?:\.[0-9_]*)?(?:[eE][-+]?[0-9]+)?|\.[0-9_]+(?:[eE][-+]?[0-9]+)?|[-+]?[0-9][0-9_]*(?::[0-5]?[0-9])+\.[0-9_]*|[-+]?\.(?:inf|Inf|INF)|\.(?:nan|NaN|NAN))$`)),
		construct: constructExtFloat,
	}
	timestampType = &tagType{
		tag: tagTimestamp, kind: yaml.ScalarNode, implicit: true,
		resolve:   func(s string) bool { return dateRe.MatchString(s) || timestampRe.MatchString(s) },
		construct: constructTimestamp,
	}
	mergeType = &tagType{
		tag: tagMerge, kind: yaml.ScalarNode,
		resolve:   matcher(`^(?:<<)?$`),
		construct: func(string) (any, error) { return "<<", nil },
	}
	binaryType = &tagType{
		tag: tagBinary, kind: yaml.ScalarNode,
		resolve:   matcher(`^[A-Za-z0-9+/=\s]*$`),
		construct: constructBinary,
	}
	omapType  = &tagType{tag: tagOmap, kind: yaml.SequenceNode}
	pairsType = &tagType{tag: tagPairs, kind: yaml.SequenceNode}
	setType   = &tagType{tag: tagSet, kind: yaml.MappingNode}

	jsUndefinedType = &tagType{
		tag: tagJSUndef, kind: yaml.ScalarNode,
		resolve:   always,
		construct: func(string) (any, error) { return document.Undefined{}, nil },
	}
	jsRegexpType = &tagType{
		tag: tagJSRegexp, kind: yaml.ScalarNode,
		resolve:   func(s string) bool { _, err := constructRegexp(s); return err == nil },
		construct: constructRegexp,
	}
	jsFunctionType = &tagType{
		tag: tagJSFunction, kind: yaml.ScalarNode,
		resolve:   func(s string) bool { return strings.TrimSpace(s) != "" },
		construct: func(s string) (any, error) { return document.Function{Source: s}, nil },
	}
)

var (
	failsafeTypes    = []*tagType{strType, seqType, mapType}
	coreTypes        = append(clone(failsafeTypes), coreNullType, coreBoolType, coreIntType, coreFloatType)
	// json resolves scalars exactly as core does.
	jsonTypes        = clone(coreTypes)
	defaultSafeTypes = append(clone(failsafeTypes), coreNullType, coreBoolType, extIntType, extFloatType,
		timestampType, mergeType, binaryType, omapType, pairsType, setType)
	defaultFullTypes = append(clone(defaultSafeTypes), jsUndefinedType, jsRegexpType, jsFunctionType)
)

func clone(types []*tagType) []*tagType {
	return append([]*tagType(nil), types...)
}

func noTrailingUnderscore(match func(string) bool) func(string) bool {
	return func(s string) bool {
		return !strings.HasSuffix(s, "_") && match(s)
	}
}

func constructNull(string) (any, error) { return nil, nil }

func constructBool(s string) (any, error) {
	return strings.EqualFold(s, "true"), nil
}

// constructCoreInt handles decimal, 0o and 0x integers.
func constructCoreInt(s string) (any, error) {
	neg, digits := splitSign(s)
	switch {
	case strings.HasPrefix(digits, "0o"):
		return parseInt(neg, digits[2:], 8)
	case strings.HasPrefix(digits, "0x"):
		return parseInt(neg, digits[2:], 16)
	}
	return parseInt(neg, digits, 10)
}

// constructExtInt also handles "_" separators, 0b, legacy 0-prefixed octal
// and base 60 integers.
func constructExtInt(s string) (any, error) {
	neg, digits := splitSign(strings.ReplaceAll(s, "_", ""))
	switch {
	case digits == "0":
		return int64(0), nil
	case strings.HasPrefix(digits, "0b"):
		return parseInt(neg, digits[2:], 2)
	case strings.HasPrefix(digits, "0x"):
		return parseInt(neg, digits[2:], 16)
	case strings.HasPrefix(digits, "0o"):
		return parseInt(neg, digits[2:], 8)
	case strings.HasPrefix(digits, "0"):
		return parseInt(neg, digits[1:], 8)
	case strings.Contains(digits, ":"):
		var n int64
		for _, part := range strings.Split(digits, ":") {
			d, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			n = n*60 + d
		}
		if neg {
			n = -n
		}
		return n, nil
	}
	return parseInt(neg, digits, 10)
}

// parseInt returns an int64, or a float64 when the value does not fit.
func parseInt(neg bool, digits string, base int) (any, error) {
	if neg {
		digits = "-" + digits
	}
	if n, err := strconv.ParseInt(digits, base, 64); err == nil {
		return n, nil
	}
	b, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", digits)
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return f, nil
}

func splitSign(s string) (bool, string) {
	switch {
	case strings.HasPrefix(s, "-"):
		return true, s[1:]
	case strings.HasPrefix(s, "+"):
		return false, s[1:]
	}
	return false, s
}

func constructCoreFloat(s string) (any, error) {
	if f, ok := specialFloat(s); ok {
		return f, nil
	}
	return parseFloat(s)
}

func constructExtFloat(s string) (any, error) {
	s = strings.ReplaceAll(s, "_", "")
	if f, ok := specialFloat(s); ok {
		return f, nil
	}
	if !strings.Contains(s, ":") {
		return parseFloat(s)
	}
	neg, digits := splitSign(s)
	var f float64
	for _, part := range strings.Split(digits, ":") {
		d, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		f = f*60 + d
	}
	if neg {
		f = -f
	}
	return f, nil
}

// parseFloat saturates to ±Inf instead of failing on out-of-range values.
func parseFloat(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, err
	}
	return f, nil
}

func specialFloat(s string) (float64, bool) {
	neg, body := splitSign(s)
	switch strings.ToLower(body) {
	case ".inf":
		if neg {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	case ".nan":
		return math.NaN(), true
	}
	return 0, false
}

var (
	dateRe      = regexp.MustCompile(`^([0-9]{4})-([0-9]{2})-([0-9]{2})$`)
	timestampRe = regexp.MustCompile(`^([0-9]{4})-([0-9]{1,2})-([0-9]{1,2})(?:[Tt]|[ \t]+)([0-9]{1,2}):([0-9]{2}):([0-9]{2})(?:\.([0-9]*))?(?:[ \t]*(Z|([-+])([0-9]{1,2})(?::([0-9]{2}))?))?$`)
)

func constructTimestamp(s string) (any, error) {
	if m := dateRe.FindStringSubmatch(s); m != nil {
		return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0, 0, time.UTC), nil
	}
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid timestamp %q", s)
	}

	var nsec int
	if frac := m[7]; frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec = atoi(frac + strings.Repeat("0", 9-len(frac)))
	}

	loc := time.UTC
	if m[9] != "" {
		offset := atoi(m[10])*3600 + atoi(m[11])*60
		if m[9] == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}

	return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]),
		atoi(m[4]), atoi(m[5]), atoi(m[6]), nsec, loc), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func constructBinary(s string) (any, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '=':
			return -1
		}
		return r
	}, s)
	return base64.RawStdEncoding.DecodeString(clean)
}

// constructRegexp accepts "/source/flags" or a bare source.
func constructRegexp(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty regexp")
	}
	if !strings.HasPrefix(s, "/") {
		return document.Regexp{Source: s}, nil
	}
	end := strings.LastIndex(s, "/")
	if end == 0 {
		return nil, fmt.Errorf("unterminated regexp %q", s)
	}
	flags := s[end+1:]
	seen := map[rune]bool{}
	for _, f := range flags {
		if !strings.ContainsRune("gim", f) || seen[f] {
			return nil, fmt.Errorf("invalid regexp flags %q", flags)
		}
		seen[f] = true
	}
	return document.Regexp{Source: s[1:end], Flags: flags}, nil
}
