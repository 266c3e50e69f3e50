package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"daf/internal/domain"
)

// Decoder reads a snapshot from a serialized form
type Decoder interface {
	Decode(r io.Reader) (domain.Snapshot, error)
	Format() string
}

// Encoder writes a snapshot to a serialized form
type Encoder interface {
	Encode(s domain.Snapshot, w io.Writer) error
	Format() string
}

// Codec reads and writes snapshots
type Codec interface {
	Decoder
	Encoder
}

// ForPath selects a snapshot codec from the file extension
func ForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONCodec(), nil
	case ".yaml", ".yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("no snapshot codec for %s", path)
}
