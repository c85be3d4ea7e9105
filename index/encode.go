package index

import "fmt"

// numericWidth is the zero-padded digit width used for encoded numbers,
// sized to hold the largest integer a filterable property in this node
// realistically carries (dataSize in bytes, or a unix timestamp).
const numericWidth = 19

// maxSafeInteger bounds negative-number offset encoding below, the same
// role JavaScript's Number.MAX_SAFE_INTEGER plays in the reference
// implementation this keyspace scheme is modeled on.
const maxSafeInteger = int64(9007199254740991)

// encodeValue renders an indexed property value into a string whose
// byte-lexicographic order matches the value's natural order, so the
// forward index (a sorted key-value store) can be range-scanned directly.
// Strings are quoted (so "10" sorts as a string, never as the number 10);
// numbers get a sign digit plus zero-padded, offset-for-negatives digits;
// booleans and null are fixed literals.
func encodeValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return `"` + val + `"`, nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "null", nil
	case int:
		return encodeNumber(int64(val)), nil
	case int64:
		return encodeNumber(val), nil
	case float64:
		return encodeNumber(int64(val)), nil
	default:
		return "", fmt.Errorf("index: unsupported indexed value type %T", v)
	}
}

func encodeNumber(n int64) string {
	if n >= 0 {
		return "1" + fmt.Sprintf("%0*d", numericWidth, n)
	}
	offset := maxSafeInteger - (-n)
	if offset < 0 {
		offset = 0
	}
	return "0" + fmt.Sprintf("%0*d", numericWidth, offset)
}
