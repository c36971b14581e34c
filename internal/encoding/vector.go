// Package encoding holds the decode steps applied at the store boundary:
// embedding vector codecs (with format detection) and normalization of
// store-native numeric values to float64.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidVector is returned when vector data is malformed.
var ErrInvalidVector = errors.New("invalid vector")

// ErrUnknownFormat is returned when a stored embedding is in neither the
// binary nor the text encoding. The error message carries enough of the raw
// value for the caller to fail informatively.
var ErrUnknownFormat = errors.New("unknown embedding encoding")

// Format identifies the storage encoding of an embedding value.
type Format int

const (
	// FormatUnknown means the value matched no known encoding.
	FormatUnknown Format = iota
	// FormatBinary is the length-prefixed little-endian float32 encoding.
	FormatBinary
	// FormatText is the bracket-wrapped comma-separated decimal encoding
	// produced by older seed runs.
	FormatText
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// EncodeVector encodes a float32 vector using the binary format:
// an int32 element count followed by little-endian float32 values.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vector))); err != nil {
		return nil, fmt.Errorf("failed to encode vector length: %w", err)
	}
	for _, val := range vector {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("failed to encode vector value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeBinary decodes the binary vector format.
func DecodeBinary(data []byte) ([]float32, error) {
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
	if length == 0 {
		return []float32{}, nil
	}
	if buf.Len() != int(length)*4 {
		return nil, ErrInvalidVector
	}

	vector := make([]float32, length)
	for i := int32(0); i < length; i++ {
		if err := binary.Read(buf, binary.LittleEndian, &vector[i]); err != nil {
			return nil, fmt.Errorf("failed to decode vector value at index %d: %w", i, err)
		}
	}
	return vector, nil
}

// EncodeText encodes a vector in the bracketed text format, e.g. "[0.1,0.2]".
func EncodeText(vector []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// DecodeText decodes the bracketed text format.
func DecodeText(data []byte) ([]float32, error) {
	s := strings.TrimSpace(string(data))
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, ErrInvalidVector
	}

	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}

	parts := strings.Split(body, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad element %q", ErrInvalidVector, part)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

// Detect sniffs the storage encoding of an embedding value. It only looks at
// the value's shape; the actual decode may still fail on corrupt data.
func Detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) >= 2 && trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']' {
		return FormatText
	}
	if len(data) >= 4 {
		length := int32(binary.LittleEndian.Uint32(data[:4]))
		if length >= 0 && len(data) == 4+int(length)*4 {
			return FormatBinary
		}
	}
	return FormatUnknown
}

// DecodeVector dispatches on the detected format and decodes the value.
// Unknown encodings return ErrUnknownFormat with a prefix of the raw value
// so the caller can report what it actually received.
func DecodeVector(data []byte) ([]float32, Format, error) {
	switch format := Detect(data); format {
	case FormatBinary:
		vec, err := DecodeBinary(data)
		return vec, format, err
	case FormatText:
		vec, err := DecodeText(data)
		return vec, format, err
	default:
		return nil, FormatUnknown, fmt.Errorf("%w: %d bytes, prefix %q",
			ErrUnknownFormat, len(data), rawPrefix(data))
	}
}

func rawPrefix(data []byte) string {
	const max = 16
	if len(data) <= max {
		return fmt.Sprintf("%x", data)
	}
	return fmt.Sprintf("%x…", data[:max])
}

// ValidateVector rejects nil, empty, NaN and infinite vectors.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	for _, val := range vector {
		if val != val {
			return ErrInvalidVector
		}
		if math.IsInf(float64(val), 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
