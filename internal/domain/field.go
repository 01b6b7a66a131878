package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Field holds one loosely typed JSON value from a public form submission.
// JSON null and an absent key are both unset.
type Field struct {
	raw json.RawMessage
}

// RawField builds a Field from JSON text. Used by tests and by callers that
// already hold decoded payload fragments.
func RawField(s string) Field {
	var f Field
	_ = f.UnmarshalJSON([]byte(s))
	return f
}

func (f *Field) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		f.raw = nil
		return nil
	}
	f.raw = append(f.raw[:0], trimmed...)
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if f.raw == nil {
		return []byte("null"), nil
	}
	return f.raw, nil
}

func (f Field) IsSet() bool { return f.raw != nil }

// Raw returns the JSON text as submitted, or nil when unset.
func (f Field) Raw() json.RawMessage { return f.raw }

func (f Field) IsObject() bool { return f.kind() == '{' }

func (f Field) IsArray() bool { return f.kind() == '[' }

func (f Field) isString() bool { return f.kind() == '"' }

func (f Field) isNumber() bool {
	k := f.kind()
	return k == '-' || (k >= '0' && k <= '9')
}

func (f Field) kind() byte {
	if len(f.raw) == 0 {
		return 0
	}
	return f.raw[0]
}

// Truthy reports whether the value counts as provided: unset, "", 0, NaN
// and false do not.
func (f Field) Truthy() bool {
	switch {
	case !f.IsSet():
		return false
	case f.isString():
		s, _ := f.Text()
		return s != ""
	case f.isNumber():
		n, err := strconv.ParseFloat(string(f.raw), 64)
		return err == nil && n != 0 && !math.IsNaN(n)
	case bytes.Equal(f.raw, []byte("false")):
		return false
	default:
		return true
	}
}

// Text returns the scalar value as a string. Objects and arrays are not text.
func (f Field) Text() (string, bool) {
	switch {
	case f.isString():
		var s string
		if err := json.Unmarshal(f.raw, &s); err != nil {
			return "", false
		}
		return s, true
	case f.isNumber(), bytes.Equal(f.raw, []byte("true")), bytes.Equal(f.raw, []byte("false")):
		return string(f.raw), true
	default:
		return "", false
	}
}

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Int reads an integer the lenient way browsers submit them: numbers are
// truncated and strings contribute their leading digits ("3 people" is 3).
// Values outside the int32 range are rejected.
func (f Field) Int() (int64, bool) {
	if f.isNumber() {
		n, err := strconv.ParseFloat(string(f.raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int64(n), true
	}
	s, ok := f.Text()
	if !ok || !f.isString() {
		return 0, false
	}
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Float reads a decimal with the same leading-prefix leniency as Int.
func (f Field) Float() (float64, bool) {
	if f.isNumber() {
		n, err := strconv.ParseFloat(string(f.raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	if !f.isString() {
		return 0, false
	}
	s, _ := f.Text()
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
