// Package yamlutil wraps YAML parsing to isolate the external dependency
// and to provide the canonical serialization used for cache keys.
package yamlutil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

func Unmarshal(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

func Marshal(v any) ([]byte, error) {
	result, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return result, nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// MarshalCanonical serializes v into a byte-stable form: maps are written
// with sorted keys regardless of insertion or field-iteration order. Two
// structurally identical values always produce identical bytes, which makes
// the output safe to hash as a cache key.
func MarshalCanonical(v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	// Round-trip through a generic tree so struct field order and map
	// ordering quirks of the marshaler cannot leak into the output.
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}

	var b strings.Builder
	writeCanonical(&b, tree)
	return []byte(b.String()), nil
}

// writeCanonical renders a decoded YAML tree deterministically.
func writeCanonical(b *strings.Builder, v any) {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q:", k)
			writeCanonical(b, node[k])
		}
		b.WriteByte('}')
	case map[any]any:
		normalized := make(map[string]any, len(node))
		for k, val := range node {
			normalized[fmt.Sprintf("%v", k)] = val
		}
		writeCanonical(b, normalized)
	case []any:
		b.WriteByte('[')
		for i, item := range node {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "%v", node)
	}
}
