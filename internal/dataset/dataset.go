package dataset

// Row is one materialized row keyed by column name. A nil value is a null cell.
type Row map[string]any

// Dataset is the relational capability surface the validator works against.
// Implementations may be row-oriented in-memory tables or lazy views over an
// embedded SQL engine; either way the inputs are never mutated, every
// operation derives a new dataset.
type Dataset interface {
	// Columns returns the column names in schema order.
	Columns() []string

	// Count returns the number of rows.
	Count() (int64, error)

	// NullCounts returns, per named column, the number of rows where that
	// column is null. With no arguments it covers the dataset's own columns.
	// Asking for a column the dataset does not have is a backend error.
	NullCounts(cols ...string) (map[string]int64, error)

	// Join inner-joins with right on the named key column. The result keeps a
	// single key column plus every other column from each side, renamed with
	// the given prefixes.
	Join(right Dataset, on string, leftPrefix, rightPrefix string) (Dataset, error)

	// WithNullCount appends an integer column holding, per row, the number of
	// null cells among the given columns.
	WithNullCount(name string, over []string) (Dataset, error)

	// WhereNotEqual keeps rows where columns a and b hold different values.
	WhereNotEqual(a, b string) (Dataset, error)

	// WhereIn keeps rows whose column value is a member of values. An empty
	// value list selects nothing.
	WhereIn(col string, values []any) (Dataset, error)

	// Select projects to the named columns, in the given order.
	Select(cols ...string) (Dataset, error)

	// Collect materializes every row into local memory.
	Collect() ([]Row, error)
}
