package app

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field that was omitted from one sent as null.
// Set is true whenever the key was present; Value is nil for null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Some builds a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null builds a present Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// apply overwrites dst when the field was sent.
func (o Optional[T]) apply(dst **T) {
	if o.Set {
		*dst = o.Value
	}
}
