package polling

import "math"

// Normalize coerces a raw OPC UA value to the f32 the database stores
// for every reading type. Unsupported types (including a nil/absent
// value) normalise to NaN, a distinguishable "no reading" sentinel.
func Normalize(raw any) float32 {
	switch v := raw.(type) {
	case int16:
		return float32(v)
	case float64:
		return float32(v)
	case float32:
		return v
	case bool:
		if v {
			return 1.0
		}
		return 0.0
	default:
		return float32(math.NaN())
	}
}
