package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// FieldKind tells what a Field carries.
type FieldKind int

const (
	FieldAbsent FieldKind = iota
	FieldNumber
	FieldText
)

// Field is a loosely typed episode value. Upstream records are not strictly
// typed, so a numeric column may be missing, hold a number, or hold text.
// Numbers keep the literal they were received with.
type Field struct {
	kind FieldKind
	num  float64
	lit  string
}

// Absent returns the zero Field.
func Absent() Field { return Field{} }

// Number returns a float Field. Whole values keep a trailing ".0" so a
// float column reads 3600.0 rather than 3600.
func Number(v float64) Field {
	return Field{kind: FieldNumber, num: v, lit: floatLiteral(v)}
}

func Integer(v int64) Field {
	return Field{kind: FieldNumber, num: float64(v), lit: strconv.FormatInt(v, 10)}
}

func floatLiteral(v float64) string {
	lit := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		lit += ".0"
	}
	return lit
}

func Text(s string) Field {
	return Field{kind: FieldText, lit: s}
}

func (f Field) Kind() FieldKind { return f.kind }
func (f Field) IsAbsent() bool  { return f.kind == FieldAbsent }
func (f Field) IsNumber() bool  { return f.kind == FieldNumber }

// Float returns the numeric value, or 0 when the field is not a number.
func (f Field) Float() float64 {
	if f.kind != FieldNumber {
		return 0
	}
	return f.num
}

// String returns the number literal or the text. Absent fields are empty.
func (f Field) String() string {
	return f.lit
}

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = Field{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode text field: %w", err)
		}
		*f = Text(s)
	case 't', 'f', '{', '[':
		*f = Text(string(b))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decode number field: %w", err)
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("decode number field %q: %w", n, err)
		}
		*f = Field{kind: FieldNumber, num: v, lit: n.String()}
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case FieldNumber:
		return []byte(f.lit), nil
	case FieldText:
		return json.Marshal(f.lit)
	default:
		return []byte("null"), nil
	}
}

// Scan implements sql.Scanner.
func (f *Field) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Field{}
	case int64:
		*f = Integer(v)
	case float64:
		*f = Number(v)
	case []byte:
		*f = Text(string(v))
	case string:
		*f = Text(v)
	case bool:
		*f = Text(strconv.FormatBool(v))
	case time.Time:
		*f = Integer(v.Unix())
	default:
		return fmt.Errorf("unsupported field source type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Field) Value() (driver.Value, error) {
	switch f.kind {
	case FieldNumber:
		return f.num, nil
	case FieldText:
		return f.lit, nil
	default:
		return nil, nil
	}
}
