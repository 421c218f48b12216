package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Table is one catalog entry.
type Table struct {
	ID          core.IdAndVersion
	Type        core.TableType
	Columns     []core.ColumnModel
	DefiningSQL string
}

// TableSummary is a listing row.
type TableSummary struct {
	ID          core.IdAndVersion
	Type        core.TableType
	ColumnCount int
}

// PutTable inserts or replaces a table and its columns.
func (s *SQLiteStore) PutTable(ctx context.Context, t *Table) error {
	if _, err := core.ParseTableType(string(t.Type)); err != nil {
		return core.WrapError(core.KindValidation, err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tables (id, version, table_type, defining_sql, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id, version) DO UPDATE SET
				table_type = excluded.table_type,
				defining_sql = excluded.defining_sql,
				updated_at = excluded.updated_at`,
			t.ID.ID, t.ID.Version, string(t.Type), nullableString(t.DefiningSQL), now())
		if err != nil {
			return fmt.Errorf("failed to save table %s: %w", t.ID, err)
		}
		return replaceColumns(ctx, tx, t.ID, t.Columns)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("saved table", slog.String("table", t.ID.String()), slog.Int("columns", len(t.Columns)))
	return nil
}

func replaceColumns(ctx context.Context, tx *sql.Tx, id core.IdAndVersion, columns []core.ColumnModel) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM table_columns WHERE table_id = ? AND table_version = ?`, id.ID, id.Version); err != nil {
		return fmt.Errorf("failed to delete columns of %s: %w", id, err)
	}

	for i, c := range columns {
		var facet sql.NullString
		if c.FacetType != nil {
			facet = nullableString(string(*c.FacetType))
		}
		isList := 0
		if c.IsList {
			isList = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO table_columns
				(table_id, table_version, position, column_id, name, column_type, max_size, is_list, max_list_length, facet_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id.ID, id.Version, i, c.ID, c.Name, string(c.Type),
			nullableInt64(c.MaxSize), isList, nullableInt64(c.MaxListLength), facet)
		if err != nil {
			return fmt.Errorf("failed to insert column %s of %s: %w", c.Name, id, err)
		}
	}
	return nil
}

// TableType implements catalog.Source.
func (s *SQLiteStore) TableType(ctx context.Context, id core.IdAndVersion) (core.TableType, error) {
	if s.db == nil {
		return "", errNotOpened
	}

	var tableType string
	err := s.db.QueryRowContext(ctx,
		`SELECT table_type FROM tables WHERE id = ? AND version = ?`, id.ID, id.Version).Scan(&tableType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.Errorf(core.KindSchemaNotFound, "Table not found: %s", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get table type of %s: %w", id, err)
	}
	return core.TableType(tableType), nil
}

// TableSchema implements schema.Provider. Columns come back in stored order.
func (s *SQLiteStore) TableSchema(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tables WHERE id = ? AND version = ?`, id.ID, id.Version).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if exists == 0 {
		return nil, schema.NotFound(id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT column_id, name, column_type, max_size, is_list, max_list_length, facet_type
		FROM table_columns WHERE table_id = ? AND table_version = ? ORDER BY position`, id.ID, id.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	columns := []core.ColumnModel{}
	for rows.Next() {
		var (
			c             core.ColumnModel
			columnType    string
			maxSize       sql.NullInt64
			isList        int
			maxListLength sql.NullInt64
			facet         sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &columnType, &maxSize, &isList, &maxListLength, &facet); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", id, err)
		}
		c.Type = core.ColumnType(columnType)
		c.MaxSize = int64Ptr(maxSize)
		c.IsList = isList != 0
		c.MaxListLength = int64Ptr(maxListLength)
		if facet.Valid {
			ft := core.FacetType(facet.String)
			c.FacetType = &ft
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// ListTables returns every table ordered by id and version.
func (s *SQLiteStore) ListTables(ctx context.Context) ([]TableSummary, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.version, t.table_type, COUNT(c.position)
		FROM tables t
		LEFT JOIN table_columns c ON c.table_id = t.id AND c.table_version = t.version
		GROUP BY t.id, t.version, t.table_type
		ORDER BY t.id, t.version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TableSummary
	for rows.Next() {
		var (
			t         TableSummary
			tableType string
		)
		if err := rows.Scan(&t.ID.ID, &t.ID.Version, &tableType, &t.ColumnCount); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.Type = core.TableType(tableType)
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTable removes a table, its columns and its source tables.
func (s *SQLiteStore) DeleteTable(ctx context.Context, id core.IdAndVersion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM view_sources WHERE view_id = ? AND view_version = ?`, id.ID, id.Version); err != nil {
			return fmt.Errorf("failed to delete source tables of %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE id = ? AND version = ?`, id.ID, id.Version)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.Errorf(core.KindSchemaNotFound, "Table not found: %s", id)
		}
		return nil
	})
}
