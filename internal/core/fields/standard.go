package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/samirrijal/geofields/internal/pkg/geospatial"
)

// CharField exposes a value as a string.
type CharField struct{ base }

func NewCharField(opts Options) Field {
	return &CharField{newBase(opts, "string", "Unicode string data. Ex: \"Hello World\"")}
}

func (f *CharField) Dehydrate(v any) (any, error) { return toString(v) }
func (f *CharField) Hydrate(v any) (any, error)   { return toString(v) }

func toString(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case geom.T:
		// Geometry columns on a resource without a geometry field.
		return geospatial.WKT(v)
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// IntegerField exposes a value as an integer.
type IntegerField struct{ base }

func NewIntegerField(opts Options) Field {
	return &IntegerField{newBase(opts, "integer", "Integer data. Ex: 2673")}
}

func (f *IntegerField) Dehydrate(v any) (any, error) { return toInt(v) }
func (f *IntegerField) Hydrate(v any) (any, error)   { return toInt(v) }

func toInt(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("integer: %v has a fractional part", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("integer: cannot convert %T", v)
	}
}

// FloatField exposes a value as a floating point number.
type FloatField struct{ base }

func NewFloatField(opts Options) Field {
	return &FloatField{newBase(opts, "float", "Floating point numeric data. Ex: 26.73")}
}

func (f *FloatField) Dehydrate(v any) (any, error) { return toFloat(v) }
func (f *FloatField) Hydrate(v any) (any, error)   { return toFloat(v) }

func toFloat(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("float: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("float: cannot convert %T", v)
	}
}

// BooleanField exposes a value as a boolean.
type BooleanField struct{ base }

func NewBooleanField(opts Options) Field {
	return &BooleanField{newBase(opts, "boolean", "Boolean data. Ex: True")}
}

func (f *BooleanField) Dehydrate(v any) (any, error) { return toBool(v) }
func (f *BooleanField) Hydrate(v any) (any, error)   { return toBool(v) }

func toBool(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("boolean: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("boolean: cannot convert %T", v)
	}
}

// DateTimeField exposes a timestamp; API values use RFC 3339.
type DateTimeField struct{ base }

func NewDateTimeField(opts Options) Field {
	return &DateTimeField{newBase(opts, "datetime", "A date & time as a string. Ex: \"2010-11-10T03:07:43\"")}
}

func (f *DateTimeField) Dehydrate(v any) (any, error) { return toTime(v) }
func (f *DateTimeField) Hydrate(v any) (any, error)   { return toTime(v) }

func toTime(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("datetime: cannot parse %q", v)
	default:
		return nil, fmt.Errorf("datetime: cannot convert %T", v)
	}
}

// DictField exposes a JSON document.
type DictField struct{ base }

func NewDictField(opts Options) Field {
	return &DictField{newBase(opts, "dict", "A dictionary of data. Ex: {'price': 26.73, 'name': 'Daniel'}")}
}

func (f *DictField) Dehydrate(v any) (any, error) {
	switch raw := v.(type) {
	case []byte:
		return decodeJSON(raw)
	case string:
		return decodeJSON([]byte(raw))
	default:
		return v, nil
	}
}

func decodeJSON(data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("dict: %w", err)
	}
	return out, nil
}
