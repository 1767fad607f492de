package core

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/Annany2002/nebula-workspace/internal/domain"
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

// ValidateRecord checks props against the database schema without writing anything.
func (e *Engine) ValidateRecord(ctx context.Context, userID, databaseID string, props map[string]any) ([]FieldError, error) {
	if err := e.authz.CanRead(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	schema, err := e.schemas.GetSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	return e.validator.Validate(ctx, schema, props)
}

// GetRecord returns one live record.
func (e *Engine) GetRecord(ctx context.Context, userID, databaseID, recordID string) (*domain.Record, error) {
	if err := e.authz.CanRead(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	rec, err := e.records.FindOne(ctx, databaseID, recordID)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	if rec == nil {
		return nil, NewNotFound("record", recordID)
	}
	return rec, nil
}

// CreateRecord validates props and stores them as a new record. On validation
// failure a *ValidationError is returned and nothing is persisted.
func (e *Engine) CreateRecord(ctx context.Context, userID, databaseID string, props map[string]any) (*domain.Record, error) {
	log := logger.FromContext(ctx, customLog)

	if err := e.authz.CanWrite(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	schema, err := e.schemas.GetSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	if props == nil {
		props = map[string]any{}
	}
	if err := e.validate(ctx, schema, props); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	rec := domain.Record{
		ID:           e.newID(),
		DatabaseID:   databaseID,
		Properties:   maps.Clone(props),
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    userID,
		LastEditedBy: userID,
	}
	e.injectSystemValues(schema, &rec)

	if err := e.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	log.WithField("databaseID", databaseID).Infof("Engine: created record %s", rec.ID)
	return &rec, nil
}

// UpdateRecord merges patch into an existing record. A nil value removes the key.
// Stored keys whose property no longer exists are kept as they are and are not
// validated unless the patch touches them.
func (e *Engine) UpdateRecord(ctx context.Context, userID, databaseID, recordID string, patch map[string]any) (*domain.Record, error) {
	log := logger.FromContext(ctx, customLog)

	if err := e.authz.CanWrite(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	schema, err := e.schemas.GetSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	existing, err := e.records.FindOne(ctx, databaseID, recordID)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	if existing == nil {
		return nil, NewNotFound("record", recordID)
	}

	merged := maps.Clone(existing.Properties)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	candidate := make(map[string]any, len(merged))
	for k, v := range merged {
		_, known := schema.Property(k)
		_, patched := patch[k]
		if known || patched {
			candidate[k] = v
		}
	}
	if err := e.validate(ctx, schema, candidate); err != nil {
		return nil, err
	}

	rec := *existing
	rec.Properties = merged
	rec.UpdatedAt = e.now().UTC()
	rec.LastEditedBy = userID
	e.injectSystemValues(schema, &rec)

	if err := e.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	log.WithField("databaseID", databaseID).Infof("Engine: updated record %s (%d keys)", rec.ID, len(patch))
	return &rec, nil
}

// DeleteRecord soft-deletes a record.
func (e *Engine) DeleteRecord(ctx context.Context, userID, databaseID, recordID string) error {
	if err := e.authz.CanWrite(ctx, userID, databaseID); err != nil {
		return err
	}
	if err := e.records.Delete(ctx, databaseID, recordID); err != nil {
		return err
	}
	logger.FromContext(ctx, customLog).WithField("databaseID", databaseID).Infof("Engine: deleted record %s", recordID)
	return nil
}

func (e *Engine) validate(ctx context.Context, schema *domain.DatabaseSchema, props map[string]any) error {
	errs, err := e.validator.Validate(ctx, schema, props)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// injectSystemValues writes record metadata into the properties of system-managed types.
func (e *Engine) injectSystemValues(schema *domain.DatabaseSchema, rec *domain.Record) {
	for _, p := range schema.Properties {
		switch p.Type {
		case domain.PropertyTypeCreatedTime:
			rec.Properties[p.ID] = rec.CreatedAt.Format(time.RFC3339Nano)
		case domain.PropertyTypeLastEditedTime:
			rec.Properties[p.ID] = rec.UpdatedAt.Format(time.RFC3339Nano)
		case domain.PropertyTypeCreatedBy:
			rec.Properties[p.ID] = rec.CreatedBy
		case domain.PropertyTypeLastEditedBy:
			rec.Properties[p.ID] = rec.LastEditedBy
		}
	}
}
