package sqltype

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/framesync/framesync/internal/errs"
)

// InferConfig tunes how Infer maps in-memory values to a column type.
type InferConfig struct {
	// ParseStrings attempts to parse string values as bool/int/float/date
	// before treating them as text. Set for frames loaded from CSV, where
	// every value arrives as a string.
	ParseStrings bool

	// Strict rejects columns whose values have no common SQL supertype
	// instead of falling back to unbounded text.
	Strict bool

	// DefaultStringSize is the declared width for all-null columns.
	DefaultStringSize int

	// UnboundedThreshold is the longest bucketed VARCHAR width; anything
	// above it becomes unbounded text.
	UnboundedThreshold int
}

const (
	defaultStringSize      = 255
	defaultUnboundedCutoff = 4000
)

func (c InferConfig) withDefaults() InferConfig {
	if c.DefaultStringSize == 0 {
		c.DefaultStringSize = defaultStringSize
	}
	if c.UnboundedThreshold == 0 {
		c.UnboundedThreshold = defaultUnboundedCutoff
	}
	return c
}

// stringBuckets are the widths a VARCHAR length is rounded up to, so small
// growth in observed data does not churn ALTER statements.
var stringBuckets = []int{16, 32, 64, 128, 255, 512, 1024, 2048, 4000}

func bucketSize(n, cutoff int) int {
	for _, b := range stringBuckets {
		if b > cutoff {
			break
		}
		if n <= b {
			return b
		}
	}
	return 0 // unbounded
}

// Infer returns the narrowest SQL type that represents every value in the
// column without precision loss, plus whether the column must be nullable.
// All-null columns infer as nullable text of the configured default width.
func Infer(values []any, cfg InferConfig) (Type, bool, error) {
	cfg = cfg.withDefaults()

	joined := Type{Kind: KindUnknown}
	nullable := false
	maxLen := 0
	sawValue := false

	for _, v := range values {
		t, length, isNull := valueType(v, cfg)
		if isNull {
			nullable = true
			continue
		}
		sawValue = true
		if length > maxLen {
			maxLen = length
		}

		w, ok := Widen(joined, t)
		if !ok {
			if cfg.Strict {
				return Type{}, false, errs.Newf(errs.KindTypeInference,
					"no common supertype for %s and %s", joined, t)
			}
			// Everything has a textual representation; remember that the
			// column is now text but keep tracking the max length.
			w = Text()
		}
		joined = w
	}

	if !sawValue {
		return Type{Kind: KindString, Size: cfg.DefaultStringSize}, true, nil
	}

	if (joined.Kind == KindString || joined.Kind == KindBinary) && joined.Size != 0 {
		joined.Size = bucketSize(maxLen, cfg.UnboundedThreshold)
	}
	return joined, nullable, nil
}

// valueType maps a single in-memory value to its narrowest type tag.
// length is the observed byte length for string/binary values.
func valueType(v any, cfg InferConfig) (t Type, length int, isNull bool) {
	switch x := v.(type) {
	case nil:
		return Type{}, 0, true
	case bool:
		return Type{Kind: KindBool}, 0, false
	case int:
		return intType(int64(x)), 0, false
	case int8:
		return intType(int64(x)), 0, false
	case int16:
		return intType(int64(x)), 0, false
	case int32:
		return intType(int64(x)), 0, false
	case int64:
		return intType(x), 0, false
	case uint:
		return uintType(uint64(x)), 0, false
	case uint8:
		return intType(int64(x)), 0, false
	case uint16:
		return intType(int64(x)), 0, false
	case uint32:
		return intType(int64(x)), 0, false
	case uint64:
		return uintType(x), 0, false
	case float32:
		return Type{Kind: KindFloat64}, 0, false
	case float64:
		return Type{Kind: KindFloat64}, 0, false
	case time.Time:
		return timeType(x), 0, false
	case []byte:
		return Type{Kind: KindBinary, Size: len(x)}, len(x), false
	case string:
		return stringType(x, cfg)
	default:
		// Unrecognised driver types round-trip as text.
		return Text(), 0, false
	}
}

func intType(n int64) Type {
	switch {
	case n >= math.MinInt8 && n <= math.MaxInt8:
		return Type{Kind: KindInt8}
	case n >= math.MinInt16 && n <= math.MaxInt16:
		return Type{Kind: KindInt16}
	case n >= math.MinInt32 && n <= math.MaxInt32:
		return Type{Kind: KindInt32}
	default:
		return Type{Kind: KindInt64}
	}
}

func uintType(n uint64) Type {
	if n > math.MaxInt64 {
		return Type{Kind: KindDecimal, Precision: 20}
	}
	return intType(int64(n))
}

func timeType(t time.Time) Type {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return Type{Kind: KindDate}
	}
	return Type{Kind: KindDateTime}
}

func stringType(s string, cfg InferConfig) (Type, int, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		// Empty cells in CSV input mean missing, not empty string.
		if cfg.ParseStrings {
			return Type{}, 0, true
		}
		return Type{Kind: KindString, Size: 1}, len(s), false
	}

	if cfg.ParseStrings {
		switch trimmed {
		case "true", "false", "True", "False", "TRUE", "FALSE":
			return Type{Kind: KindBool}, 0, false
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return intType(n), 0, false
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Type{Kind: KindFloat64}, 0, false
		}
		if t, ok := ParseTemporal(trimmed); ok {
			return timeType(t), 0, false
		}
	}

	return Type{Kind: KindString, Size: len(s)}, len(s), false
}

// temporalLayouts are tried in order; date-only layouts come last so a
// value carrying a clock component never parses as date-only.
var temporalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTemporal parses a string as a date or datetime, reporting whether
// any known layout matched.
func ParseTemporal(s string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
