package validator

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"KanariaGo/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotPair builds the canonical case: five rows, ts fully populated
// before, ts nulled at pk=3 after.
func snapshotPair() (before, after dataset.Dataset) {
	before = dataset.NewTable([]string{"pk", "name", "ts"}, [][]any{
		{int64(1), "a", "2024-01-01"},
		{int64(2), "b", "2024-01-02"},
		{int64(3), "c", "2024-01-03"},
		{int64(4), "d", "2024-01-04"},
		{int64(5), "e", "2024-01-05"},
	})
	after = dataset.NewTable([]string{"pk", "name", "ts"}, [][]any{
		{int64(1), "a", "2024-01-01"},
		{int64(2), "b", "2024-01-02"},
		{int64(3), "c", nil},
		{int64(4), "d", "2024-01-04"},
		{int64(5), "e", "2024-01-05"},
	})
	return before, after
}

func TestValidatorEndToEnd(t *testing.T) {
	before, after := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"ts"}, v.DivergentColumnNames())
	assert.Equal(t, int64(1), v.BadRowCount())
	assert.Equal(t, 1, v.BadColumnCount())
	assert.Equal(t, int64(5), v.OriginalRowCount())
	assert.Equal(t, 3, v.OriginalColumnCount())

	deltas := v.DivergentColumns()
	require.Len(t, deltas, 1)
	assert.Equal(t, "ts", deltas[0].ColumnName)
	assert.Equal(t, int64(1), deltas[0].Difference)

	comparison, err := v.BadRowComparison().Collect()
	require.NoError(t, err)
	require.Len(t, comparison, 1)
	assert.Equal(t, int64(3), comparison[0]["pk"])
	assert.Equal(t, int64(0), comparison[0]["leftNulls"])
	assert.Equal(t, int64(1), comparison[0]["rightNulls"])
	assert.NotNil(t, comparison[0]["left_ts"])
	assert.Nil(t, comparison[0]["right_ts"])
}

func TestValidatorProblemRows(t *testing.T) {
	before, after := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	original, err := v.OriginalProblemRows(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "ts"}, original.Columns())
	rows, err := original.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["pk"])
	assert.Equal(t, "2024-01-03", rows[0]["ts"])

	converted, err := v.ConvertedProblemRows(false)
	require.NoError(t, err)
	rows, err = converted.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["pk"])
	assert.Nil(t, rows[0]["ts"])
}

func TestValidatorProblemRowsFullRow(t *testing.T) {
	before, after := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	full, err := v.OriginalProblemRows(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "name", "ts"}, full.Columns())

	rows, err := full.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["pk"])
	assert.Equal(t, "c", rows[0]["name"])
}

func TestValidatorMissingPrimaryKey(t *testing.T) {
	before := dataset.NewTable([]string{"pk", "a"}, nil)
	after := dataset.NewTable([]string{"pk", "a"}, nil)

	_, err := New(before, after, "missing", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrimaryKeyNotFound)
}

func TestValidatorIdempotentConstruction(t *testing.T) {
	before, after := snapshotPair()

	v1, err := New(before, after, "pk", true)
	require.NoError(t, err)
	v2, err := New(before, after, "pk", true)
	require.NoError(t, err)

	assert.Equal(t, v1.BadRowCount(), v2.BadRowCount())
	assert.Equal(t, v1.DivergentColumnNames(), v2.DivergentColumnNames())

	r1, err := v1.BadRowComparison().Collect()
	require.NoError(t, err)
	r2, err := v2.BadRowComparison().Collect()
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestValidatorNoDivergence(t *testing.T) {
	before, _ := snapshotPair()
	after, _ := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	assert.Empty(t, v.DivergentColumnNames())
	assert.Equal(t, int64(0), v.BadRowCount())
	assert.Equal(t, 0, v.BadColumnCount())

	rows, err := v.OriginalProblemRows(false)
	require.NoError(t, err)
	n, err := rows.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestValidatorDuplicateKeysCrossMultiply(t *testing.T) {
	// two before rows and two after rows share pk=1, so the join yields
	// four matches, not one per unique key
	before := dataset.NewTable([]string{"pk", "ts"}, [][]any{
		{int64(1), "t1"},
		{int64(1), "t2"},
	})
	after := dataset.NewTable([]string{"pk", "ts"}, [][]any{
		{int64(1), nil},
		{int64(1), nil},
	})

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"ts"}, v.DivergentColumnNames())
	assert.Equal(t, int64(4), v.BadRowCount())
}

func TestValidatorSummaryFormat(t *testing.T) {
	before, after := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	var buf bytes.Buffer
	v.WriteSummary(&buf)

	expected := `---------------
Original Shape:
    rows    - 5
    columns - 3
Problem Shape:
    rows    - 1
    columns - 1
Details:
    ['ts (1)']
---------------
`
	assert.Equal(t, expected, buf.String())
}

func TestValidatorSummaryFormatEmpty(t *testing.T) {
	before, _ := snapshotPair()
	after, _ := snapshotPair()

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	var buf bytes.Buffer
	v.WriteSummary(&buf)
	assert.Contains(t, buf.String(), "    []\n")
}

func TestValidatorNullsLostCountsToo(t *testing.T) {
	// a column that lost nulls is still divergent, with a negative delta
	before := dataset.NewTable([]string{"pk", "v"}, [][]any{
		{int64(1), nil},
		{int64(2), "x"},
	})
	after := dataset.NewTable([]string{"pk", "v"}, [][]any{
		{int64(1), "fixed"},
		{int64(2), "x"},
	})

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	deltas := v.DivergentColumns()
	require.Len(t, deltas, 1)
	assert.Equal(t, int64(-1), deltas[0].Difference)
	assert.Equal(t, int64(1), v.BadRowCount())
}

func TestValidatorOverSQLDatasets(t *testing.T) {
	dir := t.TempDir()
	beforePath := filepath.Join(dir, "before.db")
	afterPath := filepath.Join(dir, "after.db")

	writeSQLEvents(t, beforePath, false)
	writeSQLEvents(t, afterPath, true)

	db, before, after, err := dataset.OpenPair("sqlite", beforePath, afterPath, "events", "events")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := New(before, after, "pk", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"ts"}, v.DivergentColumnNames())
	assert.Equal(t, int64(1), v.BadRowCount())

	converted, err := v.ConvertedProblemRows(false)
	require.NoError(t, err)
	rows, err := converted.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["pk"])
	assert.Nil(t, rows[0]["ts"])
}

func writeSQLEvents(t *testing.T, path string, nullAtThree bool) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE events (pk INTEGER PRIMARY KEY, name TEXT, ts TEXT)`)
	require.NoError(t, err)

	for pk := 1; pk <= 5; pk++ {
		var ts any = "2024-01-05"
		if nullAtThree && pk == 3 {
			ts = nil
		}
		_, err = db.Exec("INSERT INTO events VALUES (?, ?, ?)", pk, "e", ts)
		require.NoError(t, err)
	}
}
