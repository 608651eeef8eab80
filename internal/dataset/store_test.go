package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

var storePairs = []cmatch.ClonePair{
	{A: cmatch.Fragment{File: "/s/a.py", Start: 0, End: 9}, B: cmatch.Fragment{File: "/s/b.py", Start: 1, End: 8}},
	{A: cmatch.Fragment{File: "/s/c.py", Start: 2, End: 3}, B: cmatch.Fragment{File: "/s/d.py", Start: 4, End: 5}},
}

func TestStore_ReplaceDetections_SQL(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS detected_clones")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE detected_clones \(\s+id INTEGER PRIMARY KEY AUTOINCREMENT`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO detected_clones (file1_path"))
	prep.ExpectExec().WithArgs("/s/a.py", 0, 9, "/s/b.py", 1, 8).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("/s/c.py", 2, 3, "/s/d.py", 4, 5).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	require.NoError(t, store.ReplaceDetections(context.Background(), DefaultTable, storePairs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReplaceDetections_RollsBack(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(boom)
	mock.ExpectRollback()

	err = NewStore(db).ReplaceDetections(context.Background(), "results", storePairs)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "create table results")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadDetections_SQL(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"file1_path", "file1_start", "file1_end", "file2_path", "file2_start", "file2_end"}).
		AddRow("/s/a.py", 0, 9, "/s/b.py", 1, 8).
		AddRow("/s/c.py", 2, 3, "/s/d.py", 4, 5)

	mock.ExpectQuery(`SELECT file1_path, .* FROM tool_out ORDER BY rowid`).WillReturnRows(rows)

	pairs, err := NewStore(db).LoadDetections(context.Background(), "tool_out")
	require.NoError(t, err)
	assert.Equal(t, storePairs, pairs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InvalidTable(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	store := NewStore(db)

	_, err = store.LoadDetections(context.Background(), "clones; DROP TABLE x")
	require.ErrorIs(t, err, ErrInvalidTable)

	err = store.ReplaceDetections(context.Background(), "1st", nil)
	require.ErrorIs(t, err, ErrInvalidTable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tool.db")

	store, err := OpenStore(path)
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	ctx := context.Background()

	require.NoError(t, store.ReplaceDetections(ctx, DefaultTable, storePairs))

	got, err := store.LoadDetections(ctx, DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, storePairs, got)

	// A second ingest replaces rather than appends.
	require.NoError(t, store.ReplaceDetections(ctx, DefaultTable, storePairs[:1]))

	got, err = store.LoadDetections(ctx, DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, storePairs[:1], got)

	_, err = store.LoadDetections(ctx, "missing_table")
	require.Error(t, err)
}
