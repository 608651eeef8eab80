package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

const sqliteDriver = "sqlite"

// dirPerm is the permission for a store's parent directory.
const dirPerm = 0o750

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store persists detector results in a SQLite table, one row per clone pair.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens or creates the SQLite database at path, creating its
// parent directory if needed.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)

	mkErr := os.MkdirAll(dir, dirPerm)
	if mkErr != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, mkErr)
	}

	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return NewStore(db), nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateTable checks that name is a plain SQL identifier.
func ValidateTable(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}

	return nil
}

func dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + table
}

func createTableSQL(table string) string {
	return "CREATE TABLE " + table + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file1_path TEXT NOT NULL,
	file1_start INTEGER NOT NULL,
	file1_end INTEGER NOT NULL,
	file2_path TEXT NOT NULL,
	file2_start INTEGER NOT NULL,
	file2_end INTEGER NOT NULL
)`
}

func insertSQL(table string) string {
	return "INSERT INTO " + table +
		" (file1_path, file1_start, file1_end, file2_path, file2_start, file2_end) VALUES (?, ?, ?, ?, ?, ?)"
}

// rowid is the insertion order; it aliases id in tables created by ReplaceDetections.
func selectSQL(table string) string {
	return "SELECT file1_path, file1_start, file1_end, file2_path, file2_start, file2_end FROM " +
		table + " ORDER BY rowid"
}

// ReplaceDetections drops and recreates table, then inserts pairs in order,
// all in one transaction. Pair groups are not stored.
func (s *Store) ReplaceDetections(ctx context.Context, table string, pairs []cmatch.ClonePair) (err error) {
	validErr := ValidateTable(table)
	if validErr != nil {
		return validErr
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	_, err = tx.ExecContext(ctx, dropTableSQL(table))
	if err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}

	_, err = tx.ExecContext(ctx, createTableSQL(table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	defer stmt.Close()

	for i, cp := range pairs {
		_, err = stmt.ExecContext(ctx, cp.A.File, cp.A.Start, cp.A.End, cp.B.File, cp.B.Start, cp.B.End)
		if err != nil {
			return fmt.Errorf("insert pair %d: %w", i, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// LoadDetections reads every pair of table in insertion order. Paths are
// returned as stored and groups are left nil.
func (s *Store) LoadDetections(ctx context.Context, table string) ([]cmatch.ClonePair, error) {
	validErr := ValidateTable(table)
	if validErr != nil {
		return nil, validErr
	}

	rows, err := s.db.QueryContext(ctx, selectSQL(table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	defer rows.Close()

	var pairs []cmatch.ClonePair

	for rows.Next() {
		var cp cmatch.ClonePair

		scanErr := rows.Scan(&cp.A.File, &cp.A.Start, &cp.A.End, &cp.B.File, &cp.B.Start, &cp.B.End)
		if scanErr != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", table, len(pairs)+1, scanErr)
		}

		pairs = append(pairs, cp)
	}

	rowsErr := rows.Err()
	if rowsErr != nil {
		return nil, fmt.Errorf("read %s: %w", table, rowsErr)
	}

	return pairs, nil
}
