package job

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Patch is a partial update keyed by field. Values are string, bool, float64
// or, for list fields, []string.
type Patch map[Field]any

// Set stores v under f and returns the patch for chaining.
func (p Patch) Set(f Field, v any) Patch {
	p[f] = v
	return p
}

// IsEmpty reports whether a field value counts as not populated. A false
// boolean is populated.
func IsEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []string:
		return JoinList(value) == ""
	case *bool:
		return value == nil
	case *float64:
		return value == nil
	case *string:
		return value == nil || strings.TrimSpace(*value) == ""
	}
	return false
}

// Merge folds update into existing following Schema and returns only the
// fields whose stored value would change. Empty incoming values never clear a
// stored one. With force every enrichment field takes the new value as is;
// user fields stay protected.
func Merge(existing *Record, update Patch, force bool) Patch {
	if existing == nil {
		existing = &Record{}
	}

	out := Patch{}
	for field, raw := range update {
		spec, ok := Schema[field]
		if !ok {
			continue
		}

		incoming, ok := normalize(spec.Kind, raw)
		if !ok || IsEmpty(incoming) {
			continue
		}

		current := existing.Get(field)
		next, changed := resolve(spec, current, incoming, force)
		if changed {
			out[field] = next
		}
	}

	return out
}

func resolve(spec FieldSpec, current, incoming any, force bool) (any, bool) {
	if force && spec.Class == ClassEnrichment {
		return incoming, !equal(current, incoming)
	}

	switch spec.Policy {
	case Overwrite:
		return incoming, !equal(current, incoming)
	case FillEmpty:
		if !IsEmpty(current) {
			return nil, false
		}
		return incoming, true
	case Accumulate:
		if IsEmpty(current) {
			return incoming, true
		}
		merged := accumulate(spec.Kind, asString(current), incoming.(string))
		return merged, merged != asString(current)
	case NeverOverwrite:
		stored := strings.TrimSpace(asString(current))
		if stored != "" && stored != spec.Default {
			return nil, false
		}
		return incoming, !equal(current, incoming)
	}
	return nil, false
}

func accumulate(kind Kind, current, incoming string) string {
	if kind != KindList {
		if strings.Contains(current, incoming) {
			return current
		}
		return current + "\n" + incoming
	}

	items := SplitList(current)
	lower := strings.ToLower(current)
	for _, item := range SplitList(incoming) {
		if strings.Contains(lower, strings.ToLower(item)) {
			continue
		}
		items = append(items, item)
		lower += ListSeparator + strings.ToLower(item)
	}
	return JoinList(items)
}

// normalize converts raw patch values into the canonical Go type of kind.
func normalize(kind Kind, raw any) (any, bool) {
	switch kind {
	case KindText, KindDate:
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v), true
		case []string:
			return JoinList(v), true
		case nil:
			return nil, false
		default:
			return strings.TrimSpace(fmt.Sprint(v)), true
		}
	case KindList:
		switch v := raw.(type) {
		case string:
			return JoinList(SplitList(v)), true
		case []string:
			return JoinList(v), true
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
			return JoinList(items), true
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case *bool:
			if v == nil {
				return nil, false
			}
			return *v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		}
	case KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, !math.IsNaN(v)
		case *float64:
			if v == nil {
				return nil, false
			}
			return *v, true
		case int:
			return float64(v), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return f, err == nil
		}
	}
	return nil, false
}

func equal(a, b any) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return IsEmpty(a) && IsEmpty(b)
	}
	return a == b
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
