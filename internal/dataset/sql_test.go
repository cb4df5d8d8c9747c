package dataset

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPairFiles writes a before/after sqlite pair: five rows, and in the
// after snapshot row 3's ts has been nulled by a failed conversion.
func setupPairFiles(t *testing.T) (beforePath, afterPath string) {
	t.Helper()

	dir := t.TempDir()
	beforePath = filepath.Join(dir, "before.db")
	afterPath = filepath.Join(dir, "after.db")

	writeEvents(t, beforePath, map[int64]any{})
	writeEvents(t, afterPath, map[int64]any{3: nil})
	return beforePath, afterPath
}

// writeEvents creates the events table with rows pk=1..5. overrides replaces
// the ts value for the given pks.
func writeEvents(t *testing.T, path string, overrides map[int64]any) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE events (pk INTEGER PRIMARY KEY, name TEXT, ts TEXT)`)
	require.NoError(t, err)

	for pk := int64(1); pk <= 5; pk++ {
		var ts any = "2024-01-0" + string(rune('0'+pk))
		if v, ok := overrides[pk]; ok {
			ts = v
		}
		_, err = db.Exec("INSERT INTO events VALUES (?, ?, ?)", pk, "e", ts)
		require.NoError(t, err)
	}
}

func TestSQLDatasetColumnsAndCount(t *testing.T) {
	beforePath, _ := setupPairFiles(t)

	db, err := sql.Open("sqlite", beforePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := NewSQLDataset(db, "events")
	require.NoError(t, err)

	assert.Equal(t, []string{"pk", "name", "ts"}, d.Columns())

	n, err := d.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestSQLDatasetNullCounts(t *testing.T) {
	_, afterPath := setupPairFiles(t)

	db, err := sql.Open("sqlite", afterPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := NewSQLDataset(db, "events")
	require.NoError(t, err)

	counts, err := d.NullCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pk": 0, "name": 0, "ts": 1}, counts)

	// asking for a column the table does not have is a backend error
	_, err = d.NullCounts("no_such_column")
	assert.Error(t, err)
}

func TestOpenPairAttachesAfterFile(t *testing.T) {
	beforePath, afterPath := setupPairFiles(t)

	db, before, after, err := OpenPair("sqlite", beforePath, afterPath, "events", "events")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bn, err := before.Count()
	require.NoError(t, err)
	an, err := after.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), bn)
	assert.Equal(t, int64(5), an)

	afterNulls, err := after.NullCounts("ts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), afterNulls["ts"])
}

func TestOpenPairRejectsUnknownDriver(t *testing.T) {
	_, _, _, err := OpenPair("postgres", "x", "y", "t", "t")
	assert.Error(t, err)
}

func TestSQLDatasetJoinPipeline(t *testing.T) {
	beforePath, afterPath := setupPairFiles(t)

	db, before, after, err := OpenPair("sqlite", beforePath, afterPath, "events", "events")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	joined, err := before.Join(after, "pk", "left_", "right_")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "left_name", "left_ts", "right_name", "right_ts"}, joined.Columns())

	counted, err := joined.WithNullCount("leftNulls", []string{"left_ts"})
	require.NoError(t, err)
	counted, err = counted.WithNullCount("rightNulls", []string{"right_ts"})
	require.NoError(t, err)

	bad, err := counted.WhereNotEqual("leftNulls", "rightNulls")
	require.NoError(t, err)

	rows, err := bad.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["pk"])
	assert.Equal(t, int64(0), rows[0]["leftNulls"])
	assert.Equal(t, int64(1), rows[0]["rightNulls"])
	assert.Nil(t, rows[0]["right_ts"])
	assert.NotNil(t, rows[0]["left_ts"])
}

func TestSQLDatasetJoinRejectsForeignDatasets(t *testing.T) {
	beforePath, afterPath := setupPairFiles(t)

	db1, err := sql.Open("sqlite", beforePath)
	require.NoError(t, err)
	t.Cleanup(func() { db1.Close() })
	db2, err := sql.Open("sqlite", afterPath)
	require.NoError(t, err)
	t.Cleanup(func() { db2.Close() })

	d1, err := NewSQLDataset(db1, "events")
	require.NoError(t, err)
	d2, err := NewSQLDataset(db2, "events")
	require.NoError(t, err)

	_, err = d1.Join(d2, "pk", "l_", "r_")
	assert.Error(t, err, "datasets on different connections must not join")

	mem := NewTable([]string{"pk"}, nil)
	_, err = d1.Join(mem, "pk", "l_", "r_")
	assert.Error(t, err, "sql datasets only join sql datasets")
}

func TestSQLDatasetWhereInAndSelect(t *testing.T) {
	beforePath, _ := setupPairFiles(t)

	db, err := sql.Open("sqlite", beforePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := NewSQLDataset(db, "events")
	require.NoError(t, err)

	filtered, err := d.WhereIn("pk", []any{int64(2), int64(4)})
	require.NoError(t, err)
	n, err := filtered.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	projected, err := filtered.Select("pk", "ts")
	require.NoError(t, err)
	rows, err := projected.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)

	empty, err := d.WhereIn("pk", nil)
	require.NoError(t, err)
	n, err = empty.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
