// Package llmjson turns model output into validated Go values.
package llmjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Extract strips a surrounding markdown code fence and any prose around the
// outermost JSON object or array.
func Extract(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	if raw == "" || raw[0] == '{' || raw[0] == '[' {
		return raw
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return raw
	}
	closer := "}"
	if raw[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(raw, closer); end > start {
		return raw[start : end+1]
	}
	return raw
}

// Schema is a compiled JSON schema.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile builds a Schema from a JSON schema document held as a Go map.
func Compile(name string, doc map[string]any) (*Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal schema %s", name)
	}

	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, errors.Wrapf(err, "add schema %s", name)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", name)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(name string, doc map[string]any) *Schema {
	s, err := Compile(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks an already decoded JSON value.
func (s *Schema) Validate(v any) error {
	if err := s.compiled.Validate(v); err != nil {
		return errors.Wrapf(err, "response does not match %s schema", s.name)
	}
	return nil
}

// Decode extracts the JSON body from raw, parses it and validates it.
func Decode(raw string, schema *Schema) (map[string]any, error) {
	body := Extract(raw)
	if body == "" {
		return nil, errors.New("empty response")
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "parse response json")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected json object, got %T", v)
	}

	if schema != nil {
		if err := schema.Validate(obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// DecodeInto decodes a validated object into out using weak typing. Slices
// and maps landing in string fields are flattened, lists joined with ", ".
func DecodeInto(obj map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
		DecodeHook:       flattenToString,
	})
	if err != nil {
		return errors.Wrap(err, "build decoder")
	}
	if err := decoder.Decode(obj); err != nil {
		return errors.Wrap(err, "decode response fields")
	}
	return nil
}

func flattenToString(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || data == nil {
		return data, nil
	}
	switch v := data.(type) {
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := String(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", "), nil
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), nil
		}
		return string(b), nil
	}
	return data, nil
}

// Bool reads loosely typed booleans such as "yes" or 1.
func Bool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case float64:
		return val != 0, true
	}
	return false, false
}

// Float reads numbers that may arrive as strings. NaN means unusable.
func Float(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// String renders scalars as trimmed text and anything else as JSON.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// NullableString is the schema fragment for an optional string.
func NullableString() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

// NullableBool accepts booleans and the string spellings Bool understands.
func NullableBool() map[string]any {
	return map[string]any{"type": []any{"boolean", "string", "null"}}
}

// StringOrList accepts a string, a list of strings or null.
func StringOrList() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "array", "items": map[string]any{"type": []any{"string", "number"}}},
			map[string]any{"type": "null"},
		},
	}
}

// Number accepts a JSON number or a numeric string.
func Number() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `^\s*-?[0-9]+(\.[0-9]+)?\s*$`},
		},
	}
}
