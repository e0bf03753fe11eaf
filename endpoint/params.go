package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// SanitizeParams returns a copy of params without nil values. Typed nil pointers, maps and
// slices count as nil, so optional query fields can be passed straight through.
func SanitizeParams(params map[string]any) map[string]any {
	sanitized := make(map[string]any, len(params))
	for key, value := range params {
		if isNil(value) {
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// EncodeParams sanitizes params and renders them as a query string with sorted keys.
// Dates are formatted with ConvertToISO8601, slices become repeated keys and pointers are
// dereferenced.
func EncodeParams(params map[string]any) (string, error) {
	values := url.Values{}
	for key, value := range SanitizeParams(params) {
		if err := addParam(values, key, value); err != nil {
			return "", fmt.Errorf("encoding parameter %q: %w", key, err)
		}
	}
	return values.Encode(), nil
}

// addParam adds value under key. Nil values, including nil slice elements, are skipped.
func addParam(values url.Values, key string, value any) error {
	if isNil(value) {
		return nil
	}

	switch v := value.(type) {
	case time.Time, *time.Time:
		formatted, err := ConvertToISO8601(v)
		if err != nil {
			return err
		}
		values.Add(key, formatted)
	case string:
		values.Add(key, v)
	case bool:
		values.Add(key, strconv.FormatBool(v))
	case int:
		values.Add(key, strconv.Itoa(v))
	case fmt.Stringer:
		values.Add(key, v.String())
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := range rv.Len() {
				if err := addParam(values, key, rv.Index(i).Interface()); err != nil {
					return err
				}
			}
		case reflect.Pointer:
			return addParam(values, key, rv.Elem().Interface())
		case reflect.Map, reflect.Struct, reflect.Func, reflect.Chan:
			return fmt.Errorf("unsupported parameter type %T", value)
		default:
			values.Add(key, fmt.Sprint(value))
		}
	}
	return nil
}

// ConvertToISO8601 renders a date as 2006-01-02T15:04:05Z in UTC. It accepts time.Time,
// *time.Time or a string in any layout dateparse recognises; zoneless strings are read as UTC.
func ConvertToISO8601(value any) (string, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(iso8601Layout), nil
	case *time.Time:
		if v == nil {
			return "", errors.New("nil time")
		}
		return v.UTC().Format(iso8601Layout), nil
	case string:
		parsed, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return "", fmt.Errorf("parsing date %q: %w", v, err)
		}
		return parsed.UTC().Format(iso8601Layout), nil
	default:
		return "", fmt.Errorf("unsupported date type %T", value)
	}
}
