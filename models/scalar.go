package models

import (
	"encoding/base64"
	"fmt"
)

/* Scalar column values arrive as untyped strings or JSON values and are
 * decided into one of four variants at create time. The tag is carried
 * explicitly so msgpack round-trips do not have to guess from the wire type. */

const (
	ScalarTagNull = iota
	ScalarTagText
	ScalarTagInteger
	ScalarTagReal
	ScalarTagBlob
)

type ScalarValue struct {
	Tag     int     `json:"tag" msgpack:"tag"`
	Text    string  `json:"text,omitempty" msgpack:"text,omitempty"`
	Integer int64   `json:"integer,omitempty" msgpack:"integer,omitempty"`
	Real    float64 `json:"real,omitempty" msgpack:"real,omitempty"`
	Blob    []byte  `json:"blob,omitempty" msgpack:"blob,omitempty"`
}

func NullValue() ScalarValue            { return ScalarValue{Tag: ScalarTagNull} }
func TextValue(s string) ScalarValue    { return ScalarValue{Tag: ScalarTagText, Text: s} }
func IntegerValue(i int64) ScalarValue  { return ScalarValue{Tag: ScalarTagInteger, Integer: i} }
func RealValue(f float64) ScalarValue   { return ScalarValue{Tag: ScalarTagReal, Real: f} }
func BlobValue(b []byte) ScalarValue    { return ScalarValue{Tag: ScalarTagBlob, Blob: b} }

// CoerceScalar converts an arbitrary decoded value into the variant declared
// for the column. This mess happens because we are dealing with arbitrary
// JSON, nothing stops the user from passing a string where an integer is
// declared.
func CoerceScalar(columnType string, v any) (ScalarValue, error) {
	if v == nil {
		return NullValue(), nil
	}
	switch columnType {
	case ColumnTypeText:
		if s, ok := v.(string); ok {
			return TextValue(s), nil
		}
	case ColumnTypeInteger:
		switch n := v.(type) {
		case int64:
			return IntegerValue(n), nil
		case int:
			return IntegerValue(int64(n)), nil
		case float64:
			// JSON decodes every number to float64
			if n == float64(int64(n)) {
				return IntegerValue(int64(n)), nil
			}
		}
	case ColumnTypeReal:
		switch n := v.(type) {
		case float64:
			return RealValue(n), nil
		case float32:
			return RealValue(float64(n)), nil
		case int64:
			return RealValue(float64(n)), nil
		case int:
			return RealValue(float64(n)), nil
		}
	case ColumnTypeBlob:
		if b, ok := v.([]byte); ok {
			return BlobValue(b), nil
		}
		// Base64 strings from JSON bodies
		if s, ok := v.(string); ok {
			if b, err := base64.StdEncoding.DecodeString(s); err == nil {
				return BlobValue(b), nil
			}
		}
	}
	return NullValue(), fmt.Errorf("%w: value %v is not a %s", ErrInvalid, v, columnType)
}

// Compare orders two scalar values of the same variant. Null sorts first,
// mismatched variants compare by tag so the ordering is still total.
func (a ScalarValue) Compare(b ScalarValue) int {
	if a.Tag != b.Tag {
		return a.Tag - b.Tag
	}
	switch a.Tag {
	case ScalarTagText:
		switch {
		case a.Text < b.Text:
			return -1
		case a.Text > b.Text:
			return 1
		}
	case ScalarTagInteger:
		switch {
		case a.Integer < b.Integer:
			return -1
		case a.Integer > b.Integer:
			return 1
		}
	case ScalarTagReal:
		switch {
		case a.Real < b.Real:
			return -1
		case a.Real > b.Real:
			return 1
		}
	case ScalarTagBlob:
		return compareBytes(a.Blob, b.Blob)
	}
	return 0
}

func compareBytes(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
