package dialect

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000"

// renderScalar formats the kinds whose text is identical across dialects.
// It reports false for strings, byte slices and unknown types.
func renderScalar(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "NULL", true
	case bool:
		if val {
			return "TRUE", true
		}
		return "FALSE", true
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), true
	default:
		return "", false
	}
}

// textOf returns the string form of values that are substituted as text.
func textOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(timeLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
