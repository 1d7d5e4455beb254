package serialization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/ndexec/internal/tensor"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize   = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxArrayCount   = 100_000           // Maximum number of arrays in a file
	MaxArrayNameLen = 4096              // Maximum array name length
)

// ValidateOffsets checks for overlapping array regions and out-of-bounds
// access. Malformed files could otherwise make one array read another's data.
func ValidateOffsets(arrays []ArrayMeta, dataSize int64) error {
	if len(arrays) > MaxArrayCount {
		return &ValidationError{
			Type:    "too_many_arrays",
			Details: fmt.Sprintf("got %d, max %d", len(arrays), MaxArrayCount),
		}
	}

	sorted := make([]ArrayMeta, len(arrays))
	copy(sorted, arrays)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, a := range sorted {
		if a.Offset < 0 || a.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Array:   a.Name,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", a.Offset, a.Size),
			}
		}

		if a.Offset+a.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Array:   a.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", a.Offset, a.Size, dataSize),
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if a.Offset+a.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Array:   a.Name,
					Array2:  next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						a.Offset, a.Offset+a.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}

	return nil
}

// ValidateName rejects empty, oversized and path-like array names.
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty name"}
	}
	if len(name) > MaxArrayNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Array:   name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxArrayNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Type: "invalid_name", Array: name, Details: "contains '..'"}
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{Type: "invalid_name", Array: name, Details: "contains path separator (/ or \\)"}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{Type: "invalid_name", Array: name, Details: "contains null byte"}
	}
	return nil
}

// ValidateHeader checks names, declared sizes and offsets.
func ValidateHeader(h *Header, dataSize int64) error {
	if h.FormatVersion != FormatVersion {
		return &ValidationError{
			Type:    "version",
			Details: fmt.Sprintf("header declares version %d", h.FormatVersion),
		}
	}

	seen := make(map[string]bool, len(h.Arrays))
	for _, a := range h.Arrays {
		if err := ValidateName(a.Name); err != nil {
			return err
		}
		if seen[a.Name] {
			return &ValidationError{Type: "duplicate_name", Array: a.Name, Details: "appears twice"}
		}
		seen[a.Name] = true

		dt, err := parseDType(a.DType)
		if err != nil {
			return err
		}
		if len(a.Shape) > tensor.MaxRank {
			return &ValidationError{
				Type:    "invalid_shape",
				Array:   a.Name,
				Details: fmt.Sprintf("rank %d > max %d", len(a.Shape), tensor.MaxRank),
			}
		}
		// The element count may not exceed what the data section can hold,
		// which also keeps the product below overflow.
		limit := max(dataSize, 0) / int64(dt.Size())
		n := int64(1)
		for _, d := range a.Shape {
			if d <= 0 {
				return &ValidationError{Type: "invalid_shape", Array: a.Name, Details: fmt.Sprintf("shape %v", a.Shape)}
			}
			if n > limit/int64(d) {
				return &ValidationError{
					Type:    "shape_too_large",
					Array:   a.Name,
					Details: fmt.Sprintf("shape %v exceeds data section of %d bytes", a.Shape, dataSize),
				}
			}
			n *= int64(d)
		}
		if want := n * int64(dt.Size()); want != a.Size {
			return &ValidationError{
				Type:    "size_mismatch",
				Array:   a.Name,
				Details: fmt.Sprintf("%s%v needs %d bytes, header declares %d", a.DType, a.Shape, want, a.Size),
			}
		}
	}

	return ValidateOffsets(h.Arrays, dataSize)
}
