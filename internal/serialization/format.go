package serialization

import (
	"time"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "NDEX"
	FormatVersion   = 1
	HeaderAlignment = 64   // Align array data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header

	libraryVersion = "v0.1.0-dev"
)

// FlagHasMetadata is set when the header carries custom metadata.
const FlagHasMetadata uint32 = 1 << 0

// Header represents the JSON header of an archive.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Library       string            `json:"library"` // Version of ndexec that wrote the file
	CreatedAt     time.Time         `json:"created_at"`
	Arrays        []ArrayMeta       `json:"arrays"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ArrayMeta describes one array in the data section.
type ArrayMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`  // StableHLO element type, e.g. "f16"
	Shape  []int  `json:"shape"`  // Empty for scalars
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeName is the archive spelling of dt: its StableHLO element type name,
// e.g. "f32" or "ui16".
func dtypeName(dt tensor.DataType) string {
	switch dt.PJRT() {
	case dtypes.F64:
		return "f64"
	case dtypes.F32:
		return "f32"
	case dtypes.F16:
		return "f16"
	case dtypes.S64:
		return "i64"
	case dtypes.S32:
		return "i32"
	case dtypes.S16:
		return "i16"
	case dtypes.U16:
		return "ui16"
	case dtypes.U8:
		return "ui8"
	case dtypes.Bool:
		return "i1"
	default:
		return "unknown"
	}
}

// parseDType maps an archive dtype name back to the DataType. Element types
// that cannot be stored here, e.g. "bf16", are rejected.
func parseDType(s string) (tensor.DataType, error) {
	for _, dt := range tensor.DataTypes {
		if dtypeName(dt) == s {
			return dt, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownDType, "%q", s)
}

func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
