package core

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// Operator names a filter operator.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpDoesNotContain     Operator = "does_not_contain"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpBefore             Operator = "before"
	OpAfter              Operator = "after"
	OpOnOrBefore         Operator = "on_or_before"
	OpOnOrAfter          Operator = "on_or_after"
	OpContainsAll        Operator = "contains_all"
)

// Value is a property value resolved against its declared type.
// Only TextValue, NumberValue, BoolValue, DateValue and ListValue implement it.
type Value interface {
	kindRank() int
}

// TextValue holds text-like values and select option ids.
type TextValue string

// NumberValue holds a finite number.
type NumberValue float64

// BoolValue holds a checkbox value.
type BoolValue bool

// DateValue holds a point in time.
type DateValue struct{ time.Time }

// ListValue holds multi_select option ids, relation record ids or file references.
type ListValue []string

func (BoolValue) kindRank() int   { return 0 }
func (NumberValue) kindRank() int { return 1 }
func (DateValue) kindRank() int   { return 2 }
func (TextValue) kindRank() int   { return 3 }
func (ListValue) kindRank() int   { return 4 }

// Stringify renders a value the way grouping and search see it.
func Stringify(v Value) string {
	switch val := v.(type) {
	case TextValue:
		return string(val)
	case NumberValue:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case BoolValue:
		return strconv.FormatBool(bool(val))
	case DateValue:
		return val.UTC().Format(time.RFC3339)
	case ListValue:
		return strings.Join(val, ",")
	default:
		return ""
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads the date formats accepted for date-like properties.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format %q", s)
}

// IsEmptyRaw reports whether a raw stored value counts as empty: absent, null,
// the empty string or an empty array.
func IsEmptyRaw(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

type coerceFunc func(t domain.PropertyType, raw any) (Value, error)

type typeSpec struct {
	operators []Operator
	coerce    coerceFunc
	textLike  bool
	readOnly  bool
}

// Registry maps each property type to its allowed operators and value coercion.
// Build one with NewRegistry at startup and pass it to the engine.
type Registry struct {
	types   map[domain.PropertyType]typeSpec
	aliases map[string]domain.PropertyType
}

var (
	textOperators     = []Operator{OpEquals, OpNotEquals, OpContains, OpDoesNotContain, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty}
	numberOperators   = []Operator{OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpIsEmpty, OpIsNotEmpty}
	dateOperators     = []Operator{OpEquals, OpNotEquals, OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter, OpIsEmpty, OpIsNotEmpty}
	listOperators     = []Operator{OpContains, OpDoesNotContain, OpContainsAll, OpIsEmpty, OpIsNotEmpty}
	computedOperators = []Operator{OpEquals, OpNotEquals, OpContains, OpDoesNotContain, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpIsEmpty, OpIsNotEmpty}
)

// NewRegistry returns the registry for the closed set of supported property types.
func NewRegistry() *Registry {
	r := &Registry{
		types: map[domain.PropertyType]typeSpec{
			domain.PropertyTypeText:           {operators: textOperators, coerce: coerceText, textLike: true},
			domain.PropertyTypeEmail:          {operators: textOperators, coerce: coerceText, textLike: true},
			domain.PropertyTypePhone:          {operators: textOperators, coerce: coerceText, textLike: true},
			domain.PropertyTypeURL:            {operators: textOperators, coerce: coerceText, textLike: true},
			domain.PropertyTypeCreatedBy:      {operators: textOperators, coerce: coerceText, textLike: true, readOnly: true},
			domain.PropertyTypeLastEditedBy:   {operators: textOperators, coerce: coerceText, textLike: true, readOnly: true},
			domain.PropertyTypeNumber:         {operators: numberOperators, coerce: coerceNumber},
			domain.PropertyTypeDate:           {operators: dateOperators, coerce: coerceDate},
			domain.PropertyTypeCreatedTime:    {operators: dateOperators, coerce: coerceDate, readOnly: true},
			domain.PropertyTypeLastEditedTime: {operators: dateOperators, coerce: coerceDate, readOnly: true},
			domain.PropertyTypeCheckbox:       {operators: []Operator{OpEquals, OpNotEquals}, coerce: coerceBool},
			domain.PropertyTypeSelect:         {operators: []Operator{OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty}, coerce: coerceText},
			domain.PropertyTypeMultiSelect:    {operators: listOperators, coerce: coerceList},
			domain.PropertyTypeRelation:       {operators: listOperators, coerce: coerceList},
			domain.PropertyTypeFile:           {operators: []Operator{OpIsEmpty, OpIsNotEmpty}, coerce: coerceList},
			domain.PropertyTypeFormula:        {operators: computedOperators, coerce: coerceDynamic},
			domain.PropertyTypeRollup:         {operators: computedOperators, coerce: coerceDynamic},
		},
		aliases: map[string]domain.PropertyType{
			"boolean":      domain.PropertyTypeCheckbox,
			"multiselect":  domain.PropertyTypeMultiSelect,
			"multi-select": domain.PropertyTypeMultiSelect,
		},
	}
	return r
}

// Normalize maps a user-supplied type name (case-insensitive, aliases allowed) to a known type.
func (r *Registry) Normalize(name string) (domain.PropertyType, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := r.aliases[lower]; ok {
		return alias, true
	}
	t := domain.PropertyType(lower)
	_, ok := r.types[t]
	return t, ok
}

// Known reports whether t is a supported property type.
func (r *Registry) Known(t domain.PropertyType) bool {
	_, ok := r.types[t]
	return ok
}

// OperatorsFor returns the operators a property of type t accepts.
func (r *Registry) OperatorsFor(t domain.PropertyType) []Operator {
	return slices.Clone(r.types[t].operators)
}

// Supports reports whether op is allowed for type t.
func (r *Registry) Supports(t domain.PropertyType, op Operator) bool {
	return slices.Contains(r.types[t].operators, op)
}

// IsTextLike reports whether values of t are free text.
func (r *Registry) IsTextLike(t domain.PropertyType) bool {
	return r.types[t].textLike
}

// IsReadOnly reports whether values of t are produced by the system rather than written by callers.
func (r *Registry) IsReadOnly(t domain.PropertyType) bool {
	return r.types[t].readOnly
}

// Coerce converts a raw JSON-decoded value into the Value union for type t.
func (r *Registry) Coerce(t domain.PropertyType, raw any) (Value, error) {
	spec, ok := r.types[t]
	if !ok {
		return nil, &CoercionError{Type: t, Value: raw, Reason: "unknown property type"}
	}
	if raw == nil {
		return nil, &CoercionError{Type: t, Value: raw, Reason: "value is null"}
	}
	return spec.coerce(t, raw)
}

func coerceText(t domain.PropertyType, raw any) (Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &CoercionError{Type: t, Value: raw, Reason: "expected a string"}
	}
	return TextValue(s), nil
}

func coerceNumber(t domain.PropertyType, raw any) (Value, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, &CoercionError{Type: t, Value: raw, Reason: "not a number"}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &CoercionError{Type: t, Value: raw, Reason: "not a number"}
		}
		f = parsed
	default:
		return nil, &CoercionError{Type: t, Value: raw, Reason: "expected a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &CoercionError{Type: t, Value: raw, Reason: "number must be finite"}
	}
	return NumberValue(f), nil
}

func coerceDate(t domain.PropertyType, raw any) (Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return DateValue{v}, nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return nil, &CoercionError{Type: t, Value: raw, Reason: err.Error()}
		}
		return DateValue{parsed}, nil
	default:
		return nil, &CoercionError{Type: t, Value: raw, Reason: "expected a date string"}
	}
}

func coerceBool(t domain.PropertyType, raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return BoolValue(v), nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &CoercionError{Type: t, Value: raw, Reason: "expected true or false"}
		}
		return BoolValue(parsed), nil
	case float64:
		if v == 0 || v == 1 {
			return BoolValue(v == 1), nil
		}
	}
	return nil, &CoercionError{Type: t, Value: raw, Reason: "expected a boolean"}
}

func coerceList(t domain.PropertyType, raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return ListValue{v}, nil
	case []string:
		return ListValue(slices.Clone(v)), nil
	case []any:
		out := make(ListValue, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &CoercionError{Type: t, Value: raw, Reason: "array elements must be strings"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &CoercionError{Type: t, Value: raw, Reason: "expected a string or an array of strings"}
	}
}

// coerceDynamic reads computed values (formula, rollup) by their JSON shape.
func coerceDynamic(t domain.PropertyType, raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return TextValue(v), nil
	case bool:
		return BoolValue(v), nil
	case []any, []string:
		return coerceList(t, raw)
	case time.Time:
		return DateValue{v}, nil
	default:
		return coerceNumber(t, raw)
	}
}
