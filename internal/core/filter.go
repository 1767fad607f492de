package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// System field ids usable in filters, sorts and groupBy without a schema property.
const (
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
	FieldCreatedBy    = "createdBy"
	FieldLastEditedBy = "lastEditedBy"
)

var systemFields = map[string]domain.PropertyType{
	FieldCreatedAt:    domain.PropertyTypeCreatedTime,
	FieldUpdatedAt:    domain.PropertyTypeLastEditedTime,
	FieldCreatedBy:    domain.PropertyTypeCreatedBy,
	FieldLastEditedBy: domain.PropertyTypeLastEditedBy,
}

// IsSystemField reports whether id names record metadata rather than a schema property.
func IsSystemField(id string) bool {
	_, ok := systemFields[id]
	return ok
}

// Predicate reports whether a record matches. Predicates are pure.
type Predicate func(rec domain.Record) bool

// MatchAll is the predicate of an empty filter list.
func MatchAll(domain.Record) bool { return true }

// And combines predicates into their conjunction. Nil predicates are skipped.
func And(preds ...Predicate) Predicate {
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return MatchAll
	}
	return func(rec domain.Record) bool {
		for _, p := range active {
			if !p(rec) {
				return false
			}
		}
		return true
	}
}

// field is a property reference resolved against a schema.
type field struct {
	id   string
	typ  domain.PropertyType
	prop *domain.Property
}

func resolveField(schema *domain.DatabaseSchema, id string) (field, error) {
	if t, ok := systemFields[id]; ok {
		return field{id: id, typ: t}, nil
	}
	prop, ok := schema.Property(id)
	if !ok {
		return field{}, NewNotFound("property", id)
	}
	return field{id: id, typ: prop.Type, prop: &prop}, nil
}

// raw returns the stored value for the field and whether one exists.
func (f field) raw(rec domain.Record) (any, bool) {
	switch f.id {
	case FieldCreatedAt:
		return rec.CreatedAt, !rec.CreatedAt.IsZero()
	case FieldUpdatedAt:
		return rec.UpdatedAt, !rec.UpdatedAt.IsZero()
	case FieldCreatedBy:
		return rec.CreatedBy, rec.CreatedBy != ""
	case FieldLastEditedBy:
		return rec.LastEditedBy, rec.LastEditedBy != ""
	}
	v, ok := rec.Properties[f.id]
	return v, ok
}

// Compiler turns abstract filters into predicates, keyed by property type.
type Compiler struct {
	registry *Registry
}

// NewCompiler creates a Compiler backed by the given registry.
func NewCompiler(registry *Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Compile AND-combines the filters into one predicate. Unknown properties,
// unsupported operators and unreadable filter values are compile errors.
func (c *Compiler) Compile(schema *domain.DatabaseSchema, filters []domain.Filter) (Predicate, error) {
	preds := make([]Predicate, 0, len(filters))
	for _, flt := range filters {
		f, err := resolveField(schema, flt.PropertyID)
		if err != nil {
			return nil, err
		}
		p, err := c.compileOne(f, flt)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return And(preds...), nil
}

func (c *Compiler) compileOne(f field, flt domain.Filter) (Predicate, error) {
	op := Operator(flt.Operator)
	if !c.registry.Supports(f.typ, op) {
		return nil, &UnsupportedOperatorError{PropertyID: f.id, Type: f.typ, Operator: flt.Operator}
	}

	switch op {
	case OpIsEmpty:
		return func(rec domain.Record) bool {
			raw, ok := f.raw(rec)
			return !ok || IsEmptyRaw(raw)
		}, nil
	case OpIsNotEmpty:
		return func(rec domain.Record) bool {
			raw, ok := f.raw(rec)
			return ok && !IsEmptyRaw(raw)
		}, nil
	}

	test, err := c.valueTest(f, op, flt.Value)
	if err != nil {
		return nil, err
	}
	return func(rec domain.Record) bool {
		raw, ok := f.raw(rec)
		if !ok || IsEmptyRaw(raw) {
			return false
		}
		v, err := c.registry.Coerce(f.typ, raw)
		if err != nil {
			return false
		}
		return test(v)
	}, nil
}

// valueTest builds the check applied to a present, coerced record value.
func (c *Compiler) valueTest(f field, op Operator, filterValue any) (func(Value) bool, error) {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: property '%s' operator '%s': %s", ErrInvalidFilterValue, f.id, op, reason)
	}

	switch op {
	case OpEquals, OpNotEquals:
		target, err := c.registry.Coerce(f.typ, filterValue)
		if err != nil {
			return nil, invalid(err.Error())
		}
		dayOnly := isDateOnly(filterValue)
		if op == OpEquals {
			return func(v Value) bool { return valuesEqual(v, target, dayOnly) }, nil
		}
		return func(v Value) bool { return !valuesEqual(v, target, dayOnly) }, nil

	case OpContains, OpDoesNotContain:
		needles, err := needlesOf(filterValue)
		if err != nil {
			return nil, invalid(err.Error())
		}
		contains := func(v Value) bool {
			if list, ok := v.(ListValue); ok {
				for _, n := range needles {
					if slices.Contains(list, n) {
						return true
					}
				}
				return false
			}
			hay := strings.ToLower(Stringify(v))
			for _, n := range needles {
				if strings.Contains(hay, strings.ToLower(n)) {
					return true
				}
			}
			return false
		}
		if op == OpContains {
			return contains, nil
		}
		return func(v Value) bool { return !contains(v) }, nil

	case OpStartsWith, OpEndsWith:
		s, ok := filterValue.(string)
		if !ok {
			return nil, invalid("expected a string")
		}
		needle := strings.ToLower(s)
		if op == OpStartsWith {
			return func(v Value) bool { return strings.HasPrefix(strings.ToLower(Stringify(v)), needle) }, nil
		}
		return func(v Value) bool { return strings.HasSuffix(strings.ToLower(Stringify(v)), needle) }, nil

	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		target, err := coerceNumber(domain.PropertyTypeNumber, filterValue)
		if err != nil {
			return nil, invalid(err.Error())
		}
		want := float64(target.(NumberValue))
		return func(v Value) bool {
			n, ok := v.(NumberValue)
			if !ok {
				return false
			}
			got := float64(n)
			switch op {
			case OpGreaterThan:
				return got > want
			case OpLessThan:
				return got < want
			case OpGreaterThanOrEqual:
				return got >= want
			default:
				return got <= want
			}
		}, nil

	case OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter:
		target, err := coerceDate(domain.PropertyTypeDate, filterValue)
		if err != nil {
			return nil, invalid(err.Error())
		}
		want := target.(DateValue).Time
		dayOnly := isDateOnly(filterValue)
		return func(v Value) bool {
			d, ok := v.(DateValue)
			if !ok {
				return false
			}
			cmp := compareTimes(d.Time, want, dayOnly)
			switch op {
			case OpBefore:
				return cmp < 0
			case OpAfter:
				return cmp > 0
			case OpOnOrBefore:
				return cmp <= 0
			default:
				return cmp >= 0
			}
		}, nil

	case OpContainsAll:
		target, err := coerceList(f.typ, filterValue)
		if err != nil {
			return nil, invalid(err.Error())
		}
		want := target.(ListValue)
		return func(v Value) bool {
			list, ok := v.(ListValue)
			if !ok {
				return false
			}
			for _, w := range want {
				if !slices.Contains(list, w) {
					return false
				}
			}
			return true
		}, nil
	}

	return nil, &UnsupportedOperatorError{PropertyID: f.id, Type: f.typ, Operator: string(op)}
}

// needlesOf reads a contains operand: a string or an array of strings.
func needlesOf(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if len(v) > 0 {
			return v, nil
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("array elements must be strings")
			}
			out = append(out, s)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("expected a non-empty string or array of strings")
}

func isDateOnly(raw any) bool {
	s, ok := raw.(string)
	if !ok {
		return false
	}
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}

func compareTimes(a, b time.Time, dayOnly bool) int {
	if dayOnly {
		a = truncateDay(a)
		b = truncateDay(b)
	}
	return a.Compare(b)
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// valuesEqual is exact equality after coercion. Lists compare as sets.
func valuesEqual(a, b Value, dayOnly bool) bool {
	switch av := a.(type) {
	case TextValue:
		if bv, ok := b.(TextValue); ok {
			return av == bv
		}
	case NumberValue:
		if bv, ok := b.(NumberValue); ok {
			return av == bv
		}
	case BoolValue:
		if bv, ok := b.(BoolValue); ok {
			return av == bv
		}
	case DateValue:
		if bv, ok := b.(DateValue); ok {
			return compareTimes(av.Time, bv.Time, dayOnly) == 0
		}
	case ListValue:
		if bv, ok := b.(ListValue); ok {
			x, y := slices.Clone(av), slices.Clone(bv)
			slices.Sort(x)
			slices.Sort(y)
			return slices.Equal(slices.Compact(x), slices.Compact(y))
		}
	}
	// computed values may differ in shape from the filter operand
	return Stringify(a) == Stringify(b)
}

// CompileSearch builds the free-text search predicate: a record matches when any
// searchable property contains the search string, case-insensitively. With no
// property ids given, every text-like, select and multi_select property is searched.
// An empty search yields nil.
func (c *Compiler) CompileSearch(schema *domain.DatabaseSchema, search string, propertyIDs []string) (Predicate, error) {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return nil, nil
	}

	var fields []field
	if len(propertyIDs) == 0 {
		for i := range schema.Properties {
			p := schema.Properties[i]
			if c.registry.IsTextLike(p.Type) || p.Type == domain.PropertyTypeSelect || p.Type == domain.PropertyTypeMultiSelect {
				fields = append(fields, field{id: p.ID, typ: p.Type, prop: &p})
			}
		}
	} else {
		for _, id := range propertyIDs {
			f, err := resolveField(schema, id)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
	}

	return func(rec domain.Record) bool {
		for _, f := range fields {
			raw, ok := f.raw(rec)
			if !ok || IsEmptyRaw(raw) {
				continue
			}
			v, err := c.registry.Coerce(f.typ, raw)
			if err != nil {
				continue
			}
			for _, candidate := range searchTexts(f, v) {
				if strings.Contains(strings.ToLower(candidate), needle) {
					return true
				}
			}
		}
		return false
	}, nil
}

// searchTexts lists the strings a value is searched by. Options match by id or name.
func searchTexts(f field, v Value) []string {
	out := []string{Stringify(v)}
	if f.prop == nil || len(f.prop.Options) == 0 {
		return out
	}
	var ids []string
	switch val := v.(type) {
	case TextValue:
		ids = []string{string(val)}
	case ListValue:
		ids = val
	}
	for _, id := range ids {
		if name := f.prop.OptionName(id); name != "" {
			out = append(out, name)
		}
	}
	return out
}
