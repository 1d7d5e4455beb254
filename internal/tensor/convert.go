package tensor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ToFloat64 converts an element value to float64. Bool maps to 0 or 1.
func ToFloat64[T DType](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case float16.Float16:
		return float64(x.Float32())
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("unsupported element type %T", v))
	}
}

// FromFloat64 converts a float64 to the element type T, truncating toward
// zero for integer types. Bool is true for any non-zero value.
func FromFloat64[T DType](f float64) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *float32:
		*p = float32(f)
	case *float64:
		*p = f
	case *float16.Float16:
		*p = float16.Fromfloat32(float32(f))
	case *int16:
		*p = int16(f)
	case *int32:
		*p = int32(f)
	case *int64:
		*p = int64(f)
	case *uint8:
		*p = uint8(f)
	case *uint16:
		*p = uint16(f)
	case *bool:
		*p = f != 0
	default:
		return out, errors.Errorf("unsupported element type %T", out)
	}
	return out, nil
}
