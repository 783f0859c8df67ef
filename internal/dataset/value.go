package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies what a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

// String returns the lowercase kind name
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Value is a single cell of a record set. The zero value is null.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Null returns the null value
func Null() Value { return Value{} }

// Text wraps a string cell
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps a numeric cell. NaN is stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsText() bool   { return v.kind == KindText }

// Float returns the numeric content and whether the value is a number
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the raw text of a text value and whether the value is text
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Key returns the canonical text form used for filtering, grouping and export.
// Numbers use the shortest representation so 2022.0 and "2022" compare equal.
// Null returns the empty string.
func (v Value) Key() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return FormatNumber(v.num)
	default:
		return ""
	}
}

// String implements fmt.Stringer
func (v Value) String() string { return v.Key() }

// Equal reports whether two values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	default:
		return true
	}
}

// MarshalJSON renders numbers as JSON numbers, text as strings and null as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		if math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(FormatNumber(v.num)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON so rendered views can be read
// back by clients
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = Text(x)
	case float64:
		*v = Number(x)
	case nil:
		*v = Null()
	default:
		return fmt.Errorf("dataset: cannot decode %s into a value", data)
	}
	return nil
}

// FormatNumber prints f in its shortest round-trip decimal form
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
