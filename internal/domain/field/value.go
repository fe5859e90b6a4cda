package field

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TimeLayout is the UTC ISO-8601 form Solr expects for date fields.
// Fractional seconds are written only when present.
const TimeLayout = "2006-01-02T15:04:05.999Z"

// Point is a latitude/longitude pair for location fields.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// ToIndexed converts a single value to its wire representation.
// Lists are rejected: use IndexValues for documents.
func (f Field) ToIndexed(v any) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: nil value for field %q", ErrInvalidArgument, f.name)
	}
	if IsList(v) {
		return "", fmt.Errorf("%w: list value where a single value is expected for field %q", ErrInvalidArgument, f.name)
	}

	var (
		s   string
		err error
	)
	switch f.fieldType {
	case String, Text:
		s = toText(v)
	case Integer, Long:
		s, err = toInteger(v)
	case Float:
		s, err = toFloat(v, 32)
	case Double:
		s, err = toFloat(v, 64)
	case Time:
		s, err = toTime(v, false)
	case Date:
		s, err = toTime(v, true)
	case Boolean:
		s, err = toBool(v)
	case Location:
		s, err = toPoint(v)
	default:
		err = fmt.Errorf("unsupported type %q", f.fieldType)
	}
	if err != nil {
		return "", fmt.Errorf("%w: field %q: %w", ErrInvalidArgument, f.name, err)
	}
	return s, nil
}

// IndexValues converts a document value to wire values. Lists map element-wise
// and are only accepted by multi-valued (or text) fields. nil yields no values.
func (f Field) IndexValues(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if !IsList(v) {
		s, err := f.ToIndexed(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	if !f.multiple && f.fieldType != Text {
		return nil, fmt.Errorf("%w: multiple values given for single-valued field %q", ErrInvalidArgument, f.name)
	}
	rv := reflect.ValueOf(v)
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if elem == nil {
			continue
		}
		s, err := f.ToIndexed(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Cast converts a wire value back to the Go value for the field type.
// Integer → int, Long → int64, Float/Double → float64, Time/Date → time.Time,
// Boolean → bool, Location → Point, String/Text → string.
func (f Field) Cast(s string) (any, error) {
	switch f.fieldType {
	case String, Text:
		return s, nil
	case Integer:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("cast %q as integer: %w", s, err)
		}
		return n, nil
	case Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cast %q as long: %w", s, err)
		}
		return n, nil
	case Float, Double:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("cast %q as float: %w", s, err)
		}
		return n, nil
	case Time:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("cast %q as time: %w", s, err)
		}
		return t.UTC(), nil
	case Date:
		t, err := parseDate(s)
		if err != nil {
			return nil, fmt.Errorf("cast %q as date: %w", s, err)
		}
		return t, nil
	case Boolean:
		return s == "true", nil
	case Location:
		p, err := parsePoint(s)
		if err != nil {
			return nil, fmt.Errorf("cast %q as location: %w", s, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", f.fieldType)
	}
}

// IsList reports whether v is a slice or array (byte slices count as scalars).
func IsList(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

// FormatFloat renders a float the way the query grammar expects ranges and
// boosts: shortest representation, always with a decimal point.
func FormatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case []byte:
		return norm.NFC.String(string(x))
	case time.Time:
		return x.UTC().Format(TimeLayout)
	case fmt.Stringer:
		return norm.NFC.String(x.String())
	default:
		return fmt.Sprint(v)
	}
}

func toInteger(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatInt(int64(rv.Float()), 10), nil
	case reflect.String:
		n, err := strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%q is not an integer", rv.String())
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("cannot index %T as integer", v)
	}
}

func toFloat(v any, bitSize int) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32:
		return FormatFloat(rv.Float(), 32), nil
	case reflect.Float64:
		return FormatFloat(rv.Float(), bitSize), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FormatFloat(float64(rv.Int()), bitSize), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FormatFloat(float64(rv.Uint()), bitSize), nil
	case reflect.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		if err != nil {
			return "", fmt.Errorf("%q is not a number", rv.String())
		}
		return FormatFloat(n, bitSize), nil
	default:
		return "", fmt.Errorf("cannot index %T as float", v)
	}
}

func toTime(v any, dateOnly bool) (string, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return "", fmt.Errorf("nil time")
		}
		t = *x
	case string:
		parsed, err := parseDate(x)
		if err != nil {
			return "", err
		}
		if !dateOnly {
			if full, ferr := time.Parse(time.RFC3339Nano, x); ferr == nil {
				parsed = full
			}
		}
		t = parsed
	default:
		return "", fmt.Errorf("cannot index %T as time", v)
	}
	t = t.UTC()
	if dateOnly {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Format(TimeLayout), nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", s)
	}
	return t, nil
}

func toBool(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x), nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return "", fmt.Errorf("%q is not a boolean", x)
		}
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("cannot index %T as boolean", v)
	}
}

func toPoint(v any) (string, error) {
	switch x := v.(type) {
	case Point:
		return x.String(), nil
	case *Point:
		if x == nil {
			return "", fmt.Errorf("nil point")
		}
		return x.String(), nil
	case string:
		p, err := parsePoint(x)
		if err != nil {
			return "", err
		}
		return p.String(), nil
	default:
		return "", fmt.Errorf("cannot index %T as location", v)
	}
}

func parsePoint(s string) (Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("%q is not a lat,lng pair", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("longitude %q: %w", lngStr, err)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// Compare orders two cast values: numbers numerically, times chronologically,
// booleans false first, everything else by its string form. nil sorts first.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	na, aNum := asNumber(a)
	nb, bNum := asNumber(b)
	if aNum && bNum {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asNumber(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
