package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"daf/internal/domain"
)

// JSONCodec handles the JSON snapshot format: an object keyed by IP address
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Decode reads a snapshot. Unknown entry keys are rejected.
func (c *JSONCodec) Decode(r io.Reader) (domain.Snapshot, error) {
	var snapshot domain.Snapshot
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after snapshot")
	}

	return snapshot, nil
}

// Encode writes the snapshot with sorted keys
func (c *JSONCodec) Encode(s domain.Snapshot, w io.Writer) error {
	if s == nil {
		s = domain.Snapshot{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
