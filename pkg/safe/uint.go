// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import (
	"fmt"
	"math"
)

// Uint converts signed or unsigned integers to uint while guarding against negatives.
func Uint[T ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](v T) (uint, error) {
	u, err := Uint64(v)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint {
		return 0, fmt.Errorf("value %d out of uint range", v)
	}
	return uint(u), nil
}

// Uint64 converts signed or unsigned integers to uint64 while guarding against negatives.
func Uint64[T ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](v T) (uint64, error) {
	switch value := any(v).(type) {
	case int:
		if value < 0 {
			return 0, fmt.Errorf("value %d out of uint64 range", v)
		}
		return uint64(value), nil
	case int32:
		if value < 0 {
			return 0, fmt.Errorf("value %d out of uint64 range", v)
		}
		return uint64(value), nil
	case int64:
		if value < 0 {
			return 0, fmt.Errorf("value %d out of uint64 range", v)
		}
		return uint64(value), nil
	case uint:
		return uint64(value), nil
	case uint32:
		return uint64(value), nil
	case uint64:
		return value, nil
	default:
		// named types (e.g. model.TierID) land here; fall back to a signed check.
		if v < 0 {
			return 0, fmt.Errorf("value %d out of uint64 range", v)
		}
		return uint64(v), nil
	}
}
