package document

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ScalarText returns the canonical text of a number or boolean value. The
// second result is false for every other kind of value.
func ScalarText(v any) (string, bool) {
	switch n := v.(type) {
	case bool:
		return strconv.FormatBool(n), true
	case int:
		return strconv.Itoa(n), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float32:
		return FormatFloat(float64(n)), true
	case float64:
		return FormatFloat(n), true
	}
	return "", false
}

// dateKeyLayout matches the text JavaScript's String(Date) produces in UTC.
const dateKeyLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

// KeyText converts a constructed scalar into a mapping key. It returns false
// for sequences and mappings, which cannot be used as keys.
func KeyText(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, true
	case nil:
		return "null", true
	case time.Time:
		return k.UTC().Format(dateKeyLayout) + " (Coordinated Universal Time)", true
	case []byte:
		return string(k), true
	case Undefined:
		return "undefined", true
	case Regexp:
		return "/" + k.Source + "/" + k.Flags, true
	case Function:
		return k.Source, true
	}
	return ScalarText(v)
}

// FormatFloat renders f the way ECMAScript's Number.prototype.toString does:
// integral values print without a fraction, exponents are used from 1e21 up
// and below 1e-6, and the special values print as Infinity, -Infinity and NaN.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// Shortest round-trip digits, e.g. "1.2345e+02".
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(s, "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)

	k := len(digits)
	n := exp + 1

	var b strings.Builder
	b.WriteString(sign)
	switch {
	case k <= n && n <= 21:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		b.WriteString(digits[:n])
		b.WriteByte('.')
		b.WriteString(digits[n:])
	case -6 < n && n <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -n))
		b.WriteString(digits)
	default:
		b.WriteByte(digits[0])
		if k > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if n-1 >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(n - 1))
	}
	return b.String()
}
