package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// --- Property Operations ---

// AddProperty appends an already prepared property to a database. Visible
// properties are also appended to every view's visible columns.
func AddProperty(ctx context.Context, db *sql.DB, databaseID string, prop domain.Property) (*domain.Property, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		props, err := loadProperties(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(props, func(p domain.Property) bool { return p.ID == prop.ID }) {
			return ErrPropertyExists
		}
		prop.Order = len(props)
		if err := saveProperties(ctx, tx, databaseID, append(props, prop)); err != nil {
			return err
		}
		if !prop.IsVisible {
			return nil
		}
		return rewriteViews(ctx, tx, databaseID, func(v *domain.View) bool {
			if len(v.VisibleProperties) == 0 || slices.Contains(v.VisibleProperties, prop.ID) {
				return false
			}
			v.VisibleProperties = append(v.VisibleProperties, prop.ID)
			return true
		})
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to add property '%s' to database %s: %v", prop.Name, databaseID, err)
		return nil, err
	}
	customLog.Printf("Storage: Added property %s (%s) to database %s", prop.ID, prop.Type, databaseID)
	return &prop, nil
}

// UpdateProperty replaces the definition of an existing property, keeping its
// position. When prune is non-nil every view is passed through it against the
// updated properties and the views it reports as changed are saved in the same
// transaction.
func UpdateProperty(ctx context.Context, db *sql.DB, databaseID string, prop domain.Property, prune func(*domain.DatabaseSchema, *domain.View) bool) (*domain.Property, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		props, err := loadProperties(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(props, func(p domain.Property) bool { return p.ID == prop.ID })
		if i < 0 {
			return core.NewNotFound("property", prop.ID)
		}
		prop.Order = props[i].Order
		props[i] = prop
		if err := saveProperties(ctx, tx, databaseID, props); err != nil {
			return err
		}
		if prune == nil {
			return nil
		}
		schema := &domain.DatabaseSchema{ID: databaseID, Properties: props}
		return rewriteViews(ctx, tx, databaseID, func(v *domain.View) bool {
			return prune(schema, v)
		})
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to update property %s of database %s: %v", prop.ID, databaseID, err)
		return nil, err
	}
	return &prop, nil
}

// DeleteProperty removes a property and cascades in one transaction: the key is
// dropped from every record (live or deleted) and every view forgets the
// property in its filters, sorts, visible columns and grouping.
func DeleteProperty(ctx context.Context, db *sql.DB, databaseID, propertyID string) error {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		props, err := loadProperties(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(props, func(p domain.Property) bool { return p.ID == propertyID })
		if i < 0 {
			return core.NewNotFound("property", propertyID)
		}
		props = slices.Delete(props, i, i+1)
		for j := range props {
			props[j].Order = j
		}
		if err := saveProperties(ctx, tx, databaseID, props); err != nil {
			return err
		}

		if err := rewriteViews(ctx, tx, databaseID, func(v *domain.View) bool {
			return stripProperty(v, propertyID)
		}); err != nil {
			return err
		}
		return stripRecordKey(ctx, tx, databaseID, propertyID)
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to delete property %s of database %s: %v", propertyID, databaseID, err)
		return err
	}
	customLog.Printf("Storage: Deleted property %s of database %s", propertyID, databaseID)
	return nil
}

// stripProperty removes every reference to propertyID from v and reports whether v changed.
func stripProperty(v *domain.View, propertyID string) bool {
	before := len(v.Filters) + len(v.Sorts) + len(v.VisibleProperties)
	v.Filters = slices.DeleteFunc(v.Filters, func(f domain.Filter) bool { return f.PropertyID == propertyID })
	v.Sorts = slices.DeleteFunc(v.Sorts, func(s domain.Sort) bool { return s.PropertyID == propertyID })
	v.VisibleProperties = slices.DeleteFunc(v.VisibleProperties, func(id string) bool { return id == propertyID })
	changed := before != len(v.Filters)+len(v.Sorts)+len(v.VisibleProperties)
	if v.GroupBy == propertyID {
		v.GroupBy = ""
		changed = true
	}
	return changed
}

func stripRecordKey(ctx context.Context, tx *sql.Tx, databaseID, propertyID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT record_id, properties FROM records WHERE database_id = ?`, databaseID)
	if err != nil {
		return fmt.Errorf("database error reading records: %w", err)
	}
	updates := map[string]string{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("failed processing record row: %w", err)
		}
		var props map[string]any
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			rows.Close()
			return fmt.Errorf("decoding properties of record %s: %w", id, err)
		}
		if _, ok := props[propertyID]; !ok {
			continue
		}
		delete(props, propertyID)
		encoded, err := json.Marshal(props)
		if err != nil {
			rows.Close()
			return fmt.Errorf("encoding properties of record %s: %w", id, err)
		}
		updates[id] = string(encoded)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed reading records: %w", err)
	}

	for _, id := range slices.Sorted(maps.Keys(updates)) {
		if _, err := tx.ExecContext(ctx, `UPDATE records SET properties = ? WHERE record_id = ?`, updates[id], id); err != nil {
			return fmt.Errorf("database error updating record %s: %w", id, err)
		}
	}
	return nil
}

func loadProperties(ctx context.Context, tx *sql.Tx, databaseID string) ([]domain.Property, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT properties FROM databases WHERE database_id = ?`, databaseID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFound("database", databaseID)
		}
		return nil, fmt.Errorf("database error loading properties: %w", err)
	}
	var props []domain.Property
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("decoding properties of database %s: %w", databaseID, err)
	}
	return props, nil
}

func saveProperties(ctx context.Context, tx *sql.Tx, databaseID string, props []domain.Property) error {
	encoded, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encoding properties: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE databases SET properties = ?, updated_at = ? WHERE database_id = ?`, string(encoded), time.Now().UTC(), databaseID)
	if err != nil {
		return fmt.Errorf("database error saving properties: %w", err)
	}
	return nil
}

// --- View Operations ---

// viewQuerier is satisfied by both *sql.DB and *sql.Tx.
type viewQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const viewColumns = `view_id, database_id, name, is_default, filters, sorts, visible_properties, group_by, position, created_at`

func listViews(ctx context.Context, q viewQuerier, databaseID string) ([]domain.View, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+viewColumns+` FROM views WHERE database_id = ? ORDER BY position, created_at`, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error listing views of database %s: %v", databaseID, err)
		return nil, fmt.Errorf("database error listing views: %w", err)
	}
	defer rows.Close()

	views := make([]domain.View, 0)
	for rows.Next() {
		var v domain.View
		var filters, sorts, visible string
		if err := rows.Scan(&v.ID, &v.DatabaseID, &v.Name, &v.IsDefault, &filters, &sorts, &visible, &v.GroupBy, &v.Position, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing view row: %w", err)
		}
		if err := decodeViewColumns(&v, filters, sorts, visible); err != nil {
			return nil, err
		}
		v.CreatedAt = v.CreatedAt.UTC()
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading views: %w", err)
	}
	return views, nil
}

func decodeViewColumns(v *domain.View, filters, sorts, visible string) error {
	if err := json.Unmarshal([]byte(filters), &v.Filters); err != nil {
		return fmt.Errorf("decoding filters of view %s: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(sorts), &v.Sorts); err != nil {
		return fmt.Errorf("decoding sorts of view %s: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(visible), &v.VisibleProperties); err != nil {
		return fmt.Errorf("decoding visible properties of view %s: %w", v.ID, err)
	}
	return nil
}

func encodeViewColumns(v domain.View) (filters, sorts, visible string, err error) {
	f, err := json.Marshal(nonNil(v.Filters))
	if err != nil {
		return "", "", "", fmt.Errorf("encoding view filters: %w", err)
	}
	s, err := json.Marshal(nonNil(v.Sorts))
	if err != nil {
		return "", "", "", fmt.Errorf("encoding view sorts: %w", err)
	}
	vis, err := json.Marshal(nonNil(v.VisibleProperties))
	if err != nil {
		return "", "", "", fmt.Errorf("encoding visible properties: %w", err)
	}
	return string(f), string(s), string(vis), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func insertView(ctx context.Context, tx *sql.Tx, v domain.View) error {
	filters, sorts, visible, err := encodeViewColumns(v)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO views (`+viewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.DatabaseID, v.Name, v.IsDefault, filters, sorts, visible, v.GroupBy, v.Position, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("database error inserting view: %w", err)
	}
	return nil
}

func saveView(ctx context.Context, tx *sql.Tx, v domain.View) error {
	filters, sorts, visible, err := encodeViewColumns(v)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE views SET name = ?, is_default = ?, filters = ?, sorts = ?, visible_properties = ?, group_by = ?, position = ? WHERE view_id = ?`,
		v.Name, v.IsDefault, filters, sorts, visible, v.GroupBy, v.Position, v.ID)
	if err != nil {
		return fmt.Errorf("database error saving view %s: %w", v.ID, err)
	}
	return nil
}

// rewriteViews applies change to every view of a database and saves the ones it reports as changed.
func rewriteViews(ctx context.Context, tx *sql.Tx, databaseID string, change func(v *domain.View) bool) error {
	views, err := listViews(ctx, tx, databaseID)
	if err != nil {
		return err
	}
	for i := range views {
		if change(&views[i]) {
			if err := saveView(ctx, tx, views[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateView adds a view after the existing ones. The first view of a database,
// or one created with IsDefault, becomes the default.
func CreateView(ctx context.Context, db *sql.DB, databaseID string, view domain.View) (*domain.View, error) {
	view.ID = uuid.NewString()
	view.DatabaseID = databaseID
	view.CreatedAt = time.Now().UTC()

	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := loadProperties(ctx, tx, databaseID); err != nil {
			return err
		}
		views, err := listViews(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		view.Position = 0
		for _, v := range views {
			view.Position = max(view.Position, v.Position+1)
		}
		if len(views) == 0 {
			view.IsDefault = true
		}
		if view.IsDefault {
			if err := clearDefault(ctx, tx, databaseID); err != nil {
				return err
			}
		}
		return insertView(ctx, tx, view)
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to create view '%s' in database %s: %v", view.Name, databaseID, err)
		return nil, err
	}
	customLog.Printf("Storage: Created view %s in database %s", view.ID, databaseID)
	return &view, nil
}

// UpdateView replaces a view's name, filters, sorts, visible columns and grouping.
// Setting IsDefault makes it the default; clearing it on the default view is ignored
// since a database always keeps one default.
func UpdateView(ctx context.Context, db *sql.DB, databaseID string, view domain.View) (*domain.View, error) {
	var saved domain.View
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		views, err := listViews(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(views, func(v domain.View) bool { return v.ID == view.ID })
		if i < 0 {
			return core.NewNotFound("view", view.ID)
		}
		saved = views[i]
		saved.Name = view.Name
		saved.Filters = view.Filters
		saved.Sorts = view.Sorts
		saved.VisibleProperties = view.VisibleProperties
		saved.GroupBy = view.GroupBy
		if view.IsDefault && !saved.IsDefault {
			if err := clearDefault(ctx, tx, databaseID); err != nil {
				return err
			}
			saved.IsDefault = true
		}
		return saveView(ctx, tx, saved)
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to update view %s in database %s: %v", view.ID, databaseID, err)
		return nil, err
	}
	return &saved, nil
}

// DeleteView removes a view. The last view of a database cannot be deleted;
// deleting the default view promotes the remaining view with the lowest position.
func DeleteView(ctx context.Context, db *sql.DB, databaseID, viewID string) error {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		views, err := listViews(ctx, tx, databaseID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(views, func(v domain.View) bool { return v.ID == viewID })
		if i < 0 {
			return core.NewNotFound("view", viewID)
		}
		if len(views) == 1 {
			return core.ErrLastView
		}
		deleted := views[i]
		if _, err := tx.ExecContext(ctx, `DELETE FROM views WHERE view_id = ?`, viewID); err != nil {
			return fmt.Errorf("database error deleting view: %w", err)
		}
		if !deleted.IsDefault {
			return nil
		}
		// views are ordered by position, so the first survivor is the lowest
		remaining := slices.Delete(views, i, i+1)
		next := remaining[0]
		next.IsDefault = true
		return saveView(ctx, tx, next)
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to delete view %s in database %s: %v", viewID, databaseID, err)
		return err
	}
	customLog.Printf("Storage: Deleted view %s in database %s", viewID, databaseID)
	return nil
}

// SetDefaultView makes viewID the only default view of its database.
func SetDefaultView(ctx context.Context, db *sql.DB, databaseID, viewID string) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if err := clearDefault(ctx, tx, databaseID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `UPDATE views SET is_default = 1 WHERE view_id = ? AND database_id = ?`, viewID, databaseID)
		if err != nil {
			return fmt.Errorf("database error setting default view: %w", err)
		}
		return expectRow(result, "view", viewID)
	})
}

func clearDefault(ctx context.Context, tx *sql.Tx, databaseID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE views SET is_default = 0 WHERE database_id = ?`, databaseID); err != nil {
		return fmt.Errorf("database error clearing default view: %w", err)
	}
	return nil
}
