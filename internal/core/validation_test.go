// internal/core/validation_test.go
package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "my_prop", true, ""},
		{"valid with numbers", "prop_123", true, ""},
		{"valid uppercase", "MY_PROP", true, ""},
		{"valid hyphen", "my-prop", true, "uuids contain hyphens"},
		{"valid uuid", "3f2b6c1e-8d4a-4b7e-9c2d-1a2b3c4d5e6f", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "my prop", false, "contains space"},
		{"invalid special char", "prop$", false, "contains dollar sign"},
		{"invalid path separator", "prop/name", false, "contains path separator"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

type failingLookup struct{}

func (failingLookup) FindOne(context.Context, string, string) (*domain.Record, error) {
	return nil, errors.New("disk on fire")
}

func contactsSchema() *domain.DatabaseSchema {
	s := tasksSchema()
	s.Properties = append(s.Properties,
		domain.Property{ID: "email", Name: "Email", Type: domain.PropertyTypeEmail, Required: true},
		domain.Property{ID: "related", Name: "Related", Type: domain.PropertyTypeRelation, Relation: &domain.RelationConfig{RelatedDatabaseID: "db-tasks"}},
		domain.Property{ID: "created", Name: "Created", Type: domain.PropertyTypeCreatedTime, Required: true},
	)
	return s
}

func newTestValidator() *Validator {
	store := newMemoryStore()
	store.addRecords(newRec("existing", 1, map[string]any{"title": "x"}))
	return NewValidator(NewRegistry(), store)
}

func messagesByID(errs []FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.PropertyID] = e.Message
	}
	return out
}

func TestValidateRequired(t *testing.T) {
	v := newTestValidator()
	errs, err := v.Validate(context.Background(), contactsSchema(), map[string]any{"title": "ok"})
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].PropertyID)
	assert.Equal(t, "Email is required", errs[0].Message)

	errs, err = v.Validate(context.Background(), contactsSchema(), map[string]any{"title": "", "email": []any{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "email"}, []string{errs[0].PropertyID, errs[1].PropertyID})
}

func TestValidateTypes(t *testing.T) {
	v := newTestValidator()
	base := func(extra map[string]any) map[string]any {
		props := map[string]any{"title": "t", "email": "a@example.com"}
		for k, val := range extra {
			props[k] = val
		}
		return props
	}

	testCases := []struct {
		name    string
		props   map[string]any
		wantKey string
		wantMsg string
	}{
		{"valid", base(nil), "", ""},
		{"bad number", base(map[string]any{"points": "many"}), "points", "must be a valid number"},
		{"numeric string ok", base(map[string]any{"points": "12.5"}), "", ""},
		{"bad email", base(map[string]any{"email": "nope"}), "email", "valid email"},
		{"bad url", base(map[string]any{"link": "not a url"}), "link", "valid URL"},
		{"good url", base(map[string]any{"link": "https://example.com/x"}), "", ""},
		{"bad select", base(map[string]any{"status": "archived"}), "status", "configured options"},
		{"bad date", base(map[string]any{"due": "tomorrow"}), "due", "valid date"},
		{"date only ok", base(map[string]any{"due": "2024-01-31"}), "", ""},
		{"bad checkbox", base(map[string]any{"flag": "yes"}), "flag", "true or false"},
		{"text must be string", base(map[string]any{"title": 42.0}), "title", "must be text"},
		{"multi not array", base(map[string]any{"tags": 3.0}), "tags", "array of option ids"},
		{"unknown key", base(map[string]any{"ghost": "x"}), "ghost", "does not exist"},
		{"relation exists", base(map[string]any{"related": []any{"existing"}}), "", ""},
		{"relation missing", base(map[string]any{"related": []any{"existing", "gone"}}), "related", "gone"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs, err := v.Validate(context.Background(), contactsSchema(), tc.props)
			require.NoError(t, err)
			if tc.wantKey == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tc.wantKey, errs[0].PropertyID)
			assert.Contains(t, errs[0].Message, tc.wantMsg)
		})
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	v := newTestValidator()
	props := map[string]any{
		"tags":   []any{"urgent", "bogus", "nope"},
		"points": "x",
		"zzz":    1.0,
		"aaa":    2.0,
	}
	errs, err := v.Validate(context.Background(), contactsSchema(), props)
	require.NoError(t, err)

	var order []string
	for _, e := range errs {
		order = append(order, e.PropertyID)
	}
	// schema order first, then unknown keys sorted
	assert.Equal(t, []string{"title", "tags", "points", "email", "aaa", "zzz"}, order)
	assert.Contains(t, messagesByID(errs)["tags"], "bogus, nope")
}

func TestValidateSkipsSystemProperties(t *testing.T) {
	v := newTestValidator()
	errs, err := v.Validate(context.Background(), contactsSchema(), map[string]any{"title": "t", "email": "a@b.co", "created": "garbage"})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateIsIdempotent(t *testing.T) {
	v := newTestValidator()
	props := map[string]any{"status": "bad", "points": "x"}
	first, err := v.Validate(context.Background(), contactsSchema(), props)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), contactsSchema(), props)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"status": "bad", "points": "x"}, props)
}

func TestValidateLookupFailure(t *testing.T) {
	v := NewValidator(NewRegistry(), failingLookup{})
	_, err := v.Validate(context.Background(), contactsSchema(), map[string]any{"title": "t", "email": "a@b.co", "related": "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}
