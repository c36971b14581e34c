package encoding

import "strconv"

// Float64 normalizes a store-native numeric value to float64. SQL aggregates
// can surface as float64, int64 or decimal text depending on the driver and
// column affinity; every aggregate scan goes through this before arithmetic
// or formatting. The second return is false for NULL or non-numeric values.
func Float64(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case []byte:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
