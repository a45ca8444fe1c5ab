// Package codec converts cached values to and from bytes.
package codec

import (
	"encoding/json"
	"fmt"
)

// Codec serializes values of type T.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSON encodes values with encoding/json.
type JSON[T any] struct{}

// Encode marshals v.
func (JSON[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals data into a new T.
func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("json decode: %w", err)
	}
	return v, nil
}

// String stores strings verbatim.
type String struct{}

// Encode returns the bytes of v.
func (String) Encode(v string) ([]byte, error) { return []byte(v), nil }

// Decode returns data as a string.
func (String) Decode(data []byte) (string, error) { return string(data), nil }

// Bytes stores byte slices verbatim.
type Bytes struct{}

// Encode returns v unchanged.
func (Bytes) Encode(v []byte) ([]byte, error) { return v, nil }

// Decode returns data unchanged.
func (Bytes) Decode(data []byte) ([]byte, error) { return data, nil }
