package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Registration is one recorded change of a view's source tables.
type Registration struct {
	Revision  string
	ViewID    core.IdAndVersion
	Added     int
	Removed   int
	CreatedAt time.Time
}

// DefiningSQL returns the defining SQL of id, or "" when none is stored.
func (s *SQLiteStore) DefiningSQL(ctx context.Context, id core.IdAndVersion) (string, error) {
	if s.db == nil {
		return "", errNotOpened
	}

	var sqlText sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT defining_sql FROM tables WHERE id = ? AND version = ?`, id.ID, id.Version).Scan(&sqlText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get defining SQL of %s: %w", id, err)
	}
	return sqlText.String, nil
}

// SourceTables implements catalog.Source.
func (s *SQLiteStore) SourceTables(ctx context.Context, id core.IdAndVersion) ([]core.IdAndVersion, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, source_version FROM view_sources
		WHERE view_id = ? AND view_version = ? ORDER BY position`, id.ID, id.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get source tables of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.IdAndVersion
	for rows.Next() {
		var src core.IdAndVersion
		if err := rows.Scan(&src.ID, &src.Version); err != nil {
			return nil, fmt.Errorf("failed to scan source table: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// AllSourceTables returns the source tables of every materialized view.
func (s *SQLiteStore) AllSourceTables(ctx context.Context) (map[core.IdAndVersion][]core.IdAndVersion, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT view_id, view_version, source_id, source_version FROM view_sources
		ORDER BY view_id, view_version, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to get source tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[core.IdAndVersion][]core.IdAndVersion)
	for rows.Next() {
		var view, src core.IdAndVersion
		if err := rows.Scan(&view.ID, &view.Version, &src.ID, &src.Version); err != nil {
			return nil, fmt.Errorf("failed to scan source table: %w", err)
		}
		out[view] = append(out[view], src)
	}
	return out, rows.Err()
}

// ViewDefinition is one registration of a materialized view: its defining
// SQL, the schema derived from it, and the change to its source tables.
type ViewDefinition struct {
	ID          core.IdAndVersion
	DefiningSQL string
	Columns     []core.ColumnModel
	Add         []core.IdAndVersion
	Remove      []core.IdAndVersion
	Revision    string // empty when the source tables are unchanged
}

// SaveView stores the defining SQL and schema of a materialized view and
// applies its source table change, in one transaction. Columns without an ID
// take the ID of the view's existing column of the same name and type, or a
// new one. The assigned IDs are written back to v.Columns.
func (s *SQLiteStore) SaveView(ctx context.Context, v *ViewDefinition) error {
	columns := slices.Clone(v.Columns)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id := v.ID
		if err := assignColumnIDs(ctx, tx, id, columns); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tables (id, version, table_type, defining_sql, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id, version) DO UPDATE SET
				table_type = excluded.table_type,
				defining_sql = excluded.defining_sql,
				updated_at = excluded.updated_at`,
			id.ID, id.Version, string(core.TableTypeMaterializedView), v.DefiningSQL, now()); err != nil {
			return fmt.Errorf("failed to save defining SQL of %s: %w", id, err)
		}
		if err := replaceColumns(ctx, tx, id, columns); err != nil {
			return err
		}
		if v.Revision == "" {
			return nil
		}

		for _, src := range v.Remove {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM view_sources
				WHERE view_id = ? AND view_version = ? AND source_id = ? AND source_version = ?`,
				id.ID, id.Version, src.ID, src.Version); err != nil {
				return fmt.Errorf("failed to remove source %s of %s: %w", src, id, err)
			}
		}

		var next int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position) + 1, 0) FROM view_sources WHERE view_id = ? AND view_version = ?`,
			id.ID, id.Version).Scan(&next); err != nil {
			return fmt.Errorf("failed to read source positions of %s: %w", id, err)
		}
		for i, src := range v.Add {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO view_sources (view_id, view_version, position, source_id, source_version)
				VALUES (?, ?, ?, ?, ?)`,
				id.ID, id.Version, next+i, src.ID, src.Version); err != nil {
				return fmt.Errorf("failed to add source %s of %s: %w", src, id, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO view_registrations (revision, view_id, view_version, added, removed, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			v.Revision, id.ID, id.Version, len(v.Add), len(v.Remove), now()); err != nil {
			return fmt.Errorf("failed to record registration of %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.Columns = columns
	s.logger.Debug("saved view",
		slog.String("view", v.ID.String()),
		slog.Int("columns", len(columns)),
		slog.String("revision", v.Revision))
	return nil
}

// assignColumnIDs fills in missing column IDs. Existing columns of the view
// are matched by name and type; anything else gets an ID above every stored
// column ID.
func assignColumnIDs(ctx context.Context, tx *sql.Tx, id core.IdAndVersion, columns []core.ColumnModel) error {
	used := make(map[string]bool, len(columns))
	missing := false
	for _, c := range columns {
		if c.ID == "" {
			missing = true
			continue
		}
		used[c.ID] = true
	}
	if !missing {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT column_id, name, column_type FROM table_columns
		WHERE table_id = ? AND table_version = ?`, id.ID, id.Version)
	if err != nil {
		return fmt.Errorf("failed to get columns of %s: %w", id, err)
	}
	existing := make(map[string]string)
	for rows.Next() {
		var columnID, name, columnType string
		if err := rows.Scan(&columnID, &name, &columnType); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan column: %w", err)
		}
		existing[name+"\x00"+columnType] = columnID
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to get columns of %s: %w", id, err)
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(column_id AS INTEGER)), 0) + 1 FROM table_columns`).Scan(&next); err != nil {
		return fmt.Errorf("failed to allocate column IDs: %w", err)
	}

	for i := range columns {
		if columns[i].ID != "" {
			continue
		}
		if prev, ok := existing[columns[i].Name+"\x00"+string(columns[i].Type)]; ok && !used[prev] {
			columns[i].ID = prev
			used[prev] = true
			continue
		}
		for used[strconv.FormatInt(next, 10)] {
			next++
		}
		columns[i].ID = strconv.FormatInt(next, 10)
		used[columns[i].ID] = true
		next++
	}
	return nil
}

// Registrations returns the registration history of id, oldest first.
func (s *SQLiteStore) Registrations(ctx context.Context, id core.IdAndVersion) ([]Registration, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT revision, added, removed, created_at FROM view_registrations
		WHERE view_id = ? AND view_version = ? ORDER BY created_at, rowid`, id.ID, id.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Registration
	for rows.Next() {
		r := Registration{ViewID: id}
		if err := rows.Scan(&r.Revision, &r.Added, &r.Removed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
