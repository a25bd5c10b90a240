package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldNull
	fieldSet
)

// Field is a tri-state value: absent (no opinion), null (explicitly no
// constraint) or set. The zero value is absent.
//
// A missing JSON key decodes as absent, `null` decodes as null and anything
// else decodes as a value. Absent and null both encode as `null`; combine with
// the `omitzero` tag option to drop absent keys.
type Field[T any] struct {
	value T
	state fieldState
}

// Set returns a field holding v
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: fieldSet}
}

// Null returns an explicitly-null field
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

func (f Field[T]) IsAbsent() bool { return f.state == fieldAbsent }
func (f Field[T]) IsNull() bool   { return f.state == fieldNull }
func (f Field[T]) IsSet() bool    { return f.state == fieldSet }

// Get returns the held value and whether the field is set
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldSet
}

// OrZero returns the held value, or T's zero value when not set
func (f Field[T]) OrZero() T {
	if f.state != fieldSet {
		var zero T
		return zero
	}
	return f.value
}

// IsZero reports absence; used by encoding/json's omitzero.
func (f Field[T]) IsZero() bool {
	return f.state == fieldAbsent
}

// MarshalJSON implements json.Marshaler
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON implements json.Unmarshaler. Numbers sent as strings ("3")
// and integral floats (3.0) for integer fields are accepted, since
// interpreter output is not always strictly typed.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Null[T]()
		return nil
	}

	var v T
	err := json.Unmarshal(data, &v)
	if err == nil {
		*f = Set(v)
		return nil
	}

	if lenient, ok := decodeLenient[T](data); ok {
		*f = Set(lenient)
		return nil
	}
	return err
}

func decodeLenient[T any](data []byte) (T, bool) {
	var zero T
	raw := data
	if len(raw) > 1 && raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return zero, false
		}
		raw = []byte(s)
	}

	switch any(zero).(type) {
	case int:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || n != float64(int(n)) {
			return zero, false
		}
		v, _ := any(int(n)).(T)
		return v, true
	case float64:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return zero, false
		}
		v, _ := any(n).(T)
		return v, true
	}
	return zero, false
}
