// Package encoding is the binary vector codec shared by VectorBase and the
// SQLite storage backend: one length-prefixed, little-endian float32 row per
// call, framed so a backend can store it as an opaque BLOB column.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned when a vector is malformed: wrong framing,
// truncated data, or (via ValidateVector) NaN/Inf components or a dimension
// mismatch against what the caller expected.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector encodes a float32 vector as a length-prefixed little-endian
// byte string: a 4-byte element count followed by that many 4-byte floats.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)

	vectorLen := len(vector)
	if vectorLen > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements exceeds maximum", vectorLen)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(vectorLen)); err != nil {
		return nil, fmt.Errorf("failed to encode vector length: %w", err)
	}
	for _, val := range vector {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("failed to encode vector value: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeVector reverses EncodeVector. wantDim, if non-zero, is the dimension
// the caller expects every row in its base to have; a decoded vector of any
// other length is rejected rather than silently stored, since a dimension
// mismatch mid-base would corrupt every subsequent cosine-similarity score.
// Pass 0 to skip the dimension check (e.g. when rehydrating the very first
// row of an otherwise-empty base, before any expected dimension is known).
func DecodeVector(data []byte, wantDim int) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}

	buf := bytes.NewReader(data)

	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to decode vector length: %w", err)
	}
	if length < 0 {
		return nil, ErrInvalidVector
	}
	if length == 0 && wantDim == 0 {
		return []float32{}, nil
	}

	expectedBytes := int(length) * 4
	if buf.Len() < expectedBytes {
		return nil, ErrInvalidVector
	}

	vector := make([]float32, length)
	for i := int32(0); i < length; i++ {
		if err := binary.Read(buf, binary.LittleEndian, &vector[i]); err != nil {
			return nil, fmt.Errorf("failed to decode vector value at index %d: %w", i, err)
		}
	}

	if err := ValidateVector(vector, wantDim); err != nil {
		return nil, err
	}
	return vector, nil
}

// ValidateVector reports whether vector is well-formed: non-empty, free of
// NaN/Inf components, and (when wantDim != 0) exactly wantDim long.
func ValidateVector(vector []float32, wantDim int) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	if wantDim != 0 && len(vector) != wantDim {
		return ErrInvalidVector
	}
	for _, val := range vector {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
