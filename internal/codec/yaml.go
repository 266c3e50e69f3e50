package codec

import (
	"errors"
	"fmt"
	"io"

	"daf/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles the YAML snapshot format
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Decode reads a snapshot. Unknown entry keys are rejected and an empty
// document is an empty snapshot.
func (c *YAMLCodec) Decode(r io.Reader) (domain.Snapshot, error) {
	var snapshot domain.Snapshot
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&snapshot); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if snapshot == nil {
		snapshot = domain.Snapshot{}
	}

	return snapshot, nil
}

// Encode writes the snapshot with sorted keys
func (c *YAMLCodec) Encode(s domain.Snapshot, w io.Writer) error {
	if s == nil {
		s = domain.Snapshot{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
