package value

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrUnsupportedType is returned by FromNative for driver values outside the
// SQLite storage classes.
var ErrUnsupportedType = errors.New("unsupported column type")

// Native returns the database/sql bind value for v. Arrays and objects are
// bound as their canonical JSON text since SQLite has no composite type.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray, KindObject:
		return v.String()
	}
	return nil
}

// ToNativeParams converts request parameters into driver arguments, one per
// placeholder, in order.
func ToNativeParams(values []Value) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Native()
	}
	return args
}

// FromNative converts a single scanned column value. Blobs are reported by
// size only, and non-finite floats become the sentinel 0 so that one bad
// field does not fail the whole result set.
func FromNative(col any) (Value, error) {
	switch n := col.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Int(n), nil
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case uint64:
		if n > math.MaxInt64 {
			return Float(float64(n)), nil
		}
		return Int(int64(n)), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Int(0), nil
		}
		return Float(n), nil
	case float32:
		return FromNative(float64(n))
	case bool:
		// SQLite has no boolean storage class; the value was stored as 0 or 1.
		if n {
			return Int(1), nil
		}
		return Int(0), nil
	case string:
		return String(n), nil
	case []byte:
		return String(fmt.Sprintf("[BLOB:%d bytes]", len(n))), nil
	case time.Time:
		// Only reached for reads that could not be rewritten to bypass the
		// driver's date conversion.
		return String(n.Format(time.RFC3339Nano)), nil
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, col)
}

// FromNativeRow builds an object from one scanned row. Duplicate column names
// keep the last column's value.
func FromNativeRow(row []any, columns []string) (Value, error) {
	if len(row) != len(columns) {
		return Value{}, fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}
	obj := NewObject()
	for i, name := range columns {
		v, err := FromNative(row[i])
		if err != nil {
			return Value{}, fmt.Errorf("column %q: %w", name, err)
		}
		obj.Set(name, v)
	}
	return ObjectOf(obj), nil
}
