package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Object is a decoded JSON object. Numbers are kept as json.Number.
type Object map[string]any

// StripFences removes a surrounding markdown code fence, if any
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseStructured decodes raw model output and checks it against schema.
// Required properties must be present and non-null; present properties
// must have the declared type. Numeric strings are accepted for numeric
// fields and converted in place. Unknown properties are kept.
func ParseStructured(raw string, schema *Schema) (Object, error) {
	text := StripFences(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty response body"}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &ParseError{Reason: "malformed JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Reason: "unexpected trailing data after JSON value"}
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "response is not a JSON object"}
	}

	if schema != nil {
		if err := validateObject("", obj, schema); err != nil {
			return nil, err
		}
	}

	return Object(obj), nil
}

func validateObject(path string, obj map[string]any, schema *Schema) error {
	for _, name := range schema.Required {
		if v, ok := obj[name]; !ok || v == nil {
			return &ParseError{Field: join(path, name), Reason: "missing required field"}
		}
	}

	for name, prop := range schema.Properties {
		v, ok := obj[name]
		if !ok || v == nil {
			continue
		}
		coerced, err := validateValue(join(path, name), v, prop)
		if err != nil {
			return err
		}
		obj[name] = coerced
	}
	return nil
}

func validateValue(path string, v any, schema *Schema) (any, error) {
	typeErr := func() error {
		return &ParseError{Field: path, Reason: fmt.Sprintf("expected %s, got %s", schema.Type, jsonKind(v))}
	}

	switch schema.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, typeErr()
		}
		if len(schema.Enum) > 0 && !lo.Contains(schema.Enum, s) {
			return nil, &ParseError{Field: path, Reason: fmt.Sprintf("value %q is not one of %v", s, schema.Enum)}
		}
		return s, nil

	case TypeInteger, TypeNumber:
		n, ok := toNumber(v)
		if !ok {
			return nil, typeErr()
		}
		if schema.Type == TypeInteger {
			f, err := n.Float64()
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, typeErr()
			}
			// models sometimes emit 85.0 for an integer
			if f != math.Trunc(f) {
				return nil, &ParseError{Field: path, Reason: fmt.Sprintf("expected integer, got %s", n)}
			}
			return json.Number(strconv.FormatInt(saturate(f), 10)), nil
		}
		return n, nil

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeErr()
		}
		return b, nil

	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return nil, typeErr()
		}
		if schema.Items != nil {
			for i, item := range arr {
				if item == nil {
					continue
				}
				coerced, err := validateValue(fmt.Sprintf("%s[%d]", path, i), item, schema.Items)
				if err != nil {
					return nil, err
				}
				arr[i] = coerced
			}
		}
		return arr, nil

	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, typeErr()
		}
		if err := validateObject(path, obj, schema); err != nil {
			return nil, err
		}
		return obj, nil
	}

	return v, nil
}

func toNumber(v any) (json.Number, bool) {
	switch n := v.(type) {
	case json.Number:
		return n, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", false
		}
		return json.Number(s), true
	}
	return "", false
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// Text returns a trimmed string field. Missing, null or blank values report false.
func (o Object) Text(key string) (string, bool) {
	s, ok := o[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Int returns an integer field, rounding fractional numbers
func (o Object) Int(key string) (int, bool) {
	n, ok := toNumber(o[key])
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	v := saturate(math.Round(f))
	switch {
	case v > math.MaxInt:
		return math.MaxInt, true
	case v < math.MinInt:
		return math.MinInt, true
	}
	return int(v), true
}

// saturate converts f to int64, clamping values outside the int64 range
func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Bool returns a boolean field
func (o Object) Bool(key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

// Strings returns the non-blank string elements of an array field.
// A missing or null field reports false.
func (o Object) Strings(key string) ([]string, bool) {
	arr, ok := o[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out, true
}

// Objects returns the object elements of an array field
func (o Object) Objects(key string) ([]Object, bool) {
	arr, ok := o[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]Object, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Object(m))
		}
	}
	return out, true
}
