package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"newsmask/internal/models"
)

// Migration represents a schema change applied to every split database.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// GetMigrations returns all migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_examples_table",
			SQL: `
				CREATE TABLE IF NOT EXISTS examples (
					position INTEGER PRIMARY KEY,
					id TEXT NOT NULL,
					article TEXT NOT NULL,
					masked_article TEXT NOT NULL DEFAULT '',
					answer TEXT NOT NULL DEFAULT '',
					fields TEXT NOT NULL DEFAULT '{}'
				);
			`,
		},
		{
			Version: 2,
			Name:    "index_example_ids",
			SQL: `
				CREATE INDEX IF NOT EXISTS idx_examples_id ON examples (id);
			`,
		},
	}
}

// SQLiteWriter writes each split to its own SQLite database file.
type SQLiteWriter struct {
	path func(split string) string
}

// Write implements Writer. The database is built in a temp file and renamed
// over dest once committed.
func (w *SQLiteWriter) Write(ctx context.Context, split string, records []models.Record) (string, error) {
	dest := w.path(split)
	dir := filepath.Dir(dest)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("failed to create temp database: %w", err)
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := populate(ctx, tmpPath, records); err != nil {
		_ = os.Remove(tmpPath)

		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)

		return "", fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return dest, nil
}

func populate(ctx context.Context, path string, records []models.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	defer func() {
		_ = db.Close()
	}()

	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO examples (position, id, article, masked_article, answer, fields) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}

	defer func() {
		_ = stmt.Close()
	}()

	for i, rec := range records {
		fields := []byte("{}")

		if len(rec.Fields) > 0 {
			fields, err = json.Marshal(rec.Fields)
			if err != nil {
				return fmt.Errorf("record %d fields: %w", i, err)
			}
		}

		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Article, rec.MaskedArticle, rec.Answer, string(fields)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RunMigrations executes all pending migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range GetMigrations() {
		if migration.Version <= current {
			continue
		}

		if err := runMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

func runMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// ReadSQLite loads the records of a split database in input order.
func ReadSQLite(ctx context.Context, path string) ([]models.Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx,
		"SELECT id, article, masked_article, answer, fields FROM examples ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var records []models.Record

	for rows.Next() {
		var (
			rec    models.Record
			fields string
		)

		if err := rows.Scan(&rec.ID, &rec.Article, &rec.MaskedArticle, &rec.Answer, &fields); err != nil {
			return nil, err
		}

		rec.HasArticle = true

		if fields != "{}" {
			dec := json.NewDecoder(strings.NewReader(fields))
			dec.UseNumber()

			if err := dec.Decode(&rec.Fields); err != nil {
				return nil, fmt.Errorf("record %s fields: %w", rec.ID, err)
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
