// Package tensor provides the array storage, shape descriptors and coordinate
// mapping used by the ndexec element-wise execution engine.
package tensor

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// DType is a constraint for supported element types.
// Only the exact types are accepted; named types such as
// `type celsius float32` do not satisfy it.
type DType interface {
	float32 | float64 | float16.Float16 | int16 | int32 | int64 | uint8 | uint16 | bool
}

// DataType represents runtime type information for arrays.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
	Float16
	Int16
	Uint16
)

// DataTypes lists every supported data type, in declaration order.
var DataTypes = []DataType{Float32, Float64, Int32, Int64, Uint8, Bool, Float16, Int16, Uint16}

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16, Int16, Uint16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	case Float16:
		return "float16"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt == Float16 || dt == Float32 || dt == Float64
}

// PJRT returns the equivalent gopjrt dtype. Archives name element types
// through it.
func (dt DataType) PJRT() dtypes.DType {
	switch dt {
	case Float32:
		return dtypes.Float32
	case Float64:
		return dtypes.Float64
	case Int32:
		return dtypes.Int32
	case Int64:
		return dtypes.Int64
	case Uint8:
		return dtypes.Uint8
	case Bool:
		return dtypes.Bool
	case Float16:
		return dtypes.Float16
	case Int16:
		return dtypes.Int16
	case Uint16:
		return dtypes.Uint16
	default:
		return dtypes.InvalidDType
	}
}

// FromPJRT maps a gopjrt dtype back to a DataType.
// The second result is false for dtypes this package cannot store.
func FromPJRT(dt dtypes.DType) (DataType, bool) {
	for _, candidate := range DataTypes {
		if candidate.PJRT() == dt {
			return candidate, true
		}
	}
	return 0, false
}

// DataTypeOf returns the DataType matching the Go type T.
func DataTypeOf[T DType]() DataType {
	var dummy T
	return inferDataType(dummy)
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	case float16.Float16:
		return Float16
	case int16:
		return Int16
	case uint16:
		return Uint16
	default:
		panic("unsupported type")
	}
}
