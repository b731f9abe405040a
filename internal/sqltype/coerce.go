package sqltype

import (
	"fmt"
	"strconv"
	"time"

	"github.com/framesync/framesync/internal/errs"
)

// Coerce converts an in-memory value into the canonical Go representation
// for binding against a column of type t: int64 for integer kinds,
// float64 for floats, time.Time for temporals, string for text/decimal.
// String inputs are parsed, which is how CSV-sourced frames become typed
// parameters. A nil value stays nil (SQL NULL).
func Coerce(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t.Kind {
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, coerceErr(v, t)
			}
			return b, nil
		}

	case KindInt8, KindInt16, KindInt32, KindInt64:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int8:
			return int64(x), nil
		case int16:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case uint:
			return int64(x), nil
		case uint8:
			return int64(x), nil
		case uint16:
			return int64(x), nil
		case uint32:
			return int64(x), nil
		case uint64:
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			if x == float64(int64(x)) {
				return int64(x), nil
			}
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return nil, coerceErr(v, t)
			}
			return n, nil
		}

	case KindFloat64, KindDecimal:
		switch x := v.(type) {
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, coerceErr(v, t)
			}
			return f, nil
		}

	case KindDate, KindDateTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			if parsed, ok := ParseTemporal(x); ok {
				return parsed, nil
			}
		}

	case KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case time.Time:
			return x.Format(time.RFC3339), nil
		case []byte:
			return string(x), nil
		default:
			return fmt.Sprintf("%v", x), nil
		}

	case KindBinary:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	}

	return nil, coerceErr(v, t)
}

func coerceErr(v any, t Type) error {
	return errs.Newf(errs.KindTypeInference, "cannot represent %T value as %s", v, t)
}
