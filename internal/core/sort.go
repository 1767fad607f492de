package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// Comparator orders two records: negative when a sorts first, zero when equal.
type Comparator func(a, b domain.Record) int

// DefaultSorts is the ordering used when neither the request nor the view sorts:
// newest records first.
func DefaultSorts() []domain.Sort {
	return []domain.Sort{{PropertyID: FieldCreatedAt, Direction: domain.SortDesc}}
}

// SortBuilder turns sort specs into a lexicographic multi-key comparator.
//
// Null policy: per key, a missing value (absent, empty, or unreadable as the
// property's type) is less than any present value. The direction inverts the
// per-key comparison, so missing values come first for asc and last for desc.
// Ties on every key fall back to CreatedAt then ID ascending, which makes the
// ordering a strict total order over distinct records.
type SortBuilder struct {
	registry *Registry
}

// NewSortBuilder creates a SortBuilder backed by the given registry.
func NewSortBuilder(registry *Registry) *SortBuilder {
	return &SortBuilder{registry: registry}
}

// NormalizeDirection validates a direction, defaulting empty to asc.
func NormalizeDirection(d domain.SortDirection) (domain.SortDirection, error) {
	switch domain.SortDirection(strings.ToLower(string(d))) {
	case "", domain.SortAsc:
		return domain.SortAsc, nil
	case domain.SortDesc:
		return domain.SortDesc, nil
	}
	return "", fmt.Errorf("%w: sort direction must be 'asc' or 'desc', got '%s'", ErrInvalidQuery, d)
}

type sortKey struct {
	f    field
	desc bool
}

// Build returns the comparator for sorts, or for DefaultSorts when sorts is empty.
func (b *SortBuilder) Build(schema *domain.DatabaseSchema, sorts []domain.Sort) (Comparator, error) {
	if len(sorts) == 0 {
		sorts = DefaultSorts()
	}
	keys := make([]sortKey, 0, len(sorts))
	for _, s := range sorts {
		f, err := resolveField(schema, s.PropertyID)
		if err != nil {
			return nil, err
		}
		dir, err := NormalizeDirection(s.Direction)
		if err != nil {
			return nil, err
		}
		keys = append(keys, sortKey{f: f, desc: dir == domain.SortDesc})
	}

	return func(a, c domain.Record) int {
		for _, k := range keys {
			r := compareValues(b.value(k.f, a), b.value(k.f, c))
			if r != 0 {
				if k.desc {
					return -r
				}
				return r
			}
		}
		if r := a.CreatedAt.Compare(c.CreatedAt); r != 0 {
			return r
		}
		return strings.Compare(a.ID, c.ID)
	}, nil
}

// value reads a record's value for f, nil when missing.
func (b *SortBuilder) value(f field, rec domain.Record) Value {
	raw, ok := f.raw(rec)
	if !ok || IsEmptyRaw(raw) {
		return nil
	}
	v, err := b.registry.Coerce(f.typ, raw)
	if err != nil {
		return nil
	}
	return v
}

// compareValues orders two possibly-missing values. Missing sorts first; values
// of different kinds order by kind.
func compareValues(a, b Value) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ra, rb := a.kindRank(), b.kindRank(); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case TextValue:
		bv := b.(TextValue)
		if r := strings.Compare(strings.ToLower(string(av)), strings.ToLower(string(bv))); r != 0 {
			return r
		}
		return strings.Compare(string(av), string(bv))
	case NumberValue:
		return cmp.Compare(av, b.(NumberValue))
	case BoolValue:
		bv := b.(BoolValue)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case DateValue:
		return av.Compare(b.(DateValue).Time)
	case ListValue:
		return slices.Compare(av, b.(ListValue))
	}
	return 0
}

// SortRecords sorts records in place.
func SortRecords(records []domain.Record, order Comparator) {
	slices.SortStableFunc(records, order)
}
