package dataset

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// SQLDataset is a lazy Dataset over an embedded SQL engine. Every operation
// composes a derived SELECT around the current query; nothing runs until
// Count/NullCounts/Collect pull results through database/sql. Works with the
// sqlite and duckdb drivers.
type SQLDataset struct {
	db    *sql.DB
	cols  []string
	query string
	args  []any
}

// NewSQLDataset wraps a table (or schema-qualified table) as a dataset. The
// column list is introspected with a zero-row probe query.
func NewSQLDataset(db *sql.DB, table string) (*SQLDataset, error) {
	query := fmt.Sprintf("SELECT * FROM %s", table)
	rows, err := db.Query(query + " LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return &SQLDataset{db: db, cols: cols, query: query}, nil
}

// OpenPair opens the before/after sources for a comparison on one connection
// so the two sides stay joinable. When the snapshots live in different files
// the after file is attached under the after_src schema.
func OpenPair(driver, beforePath, afterPath, beforeTable, afterTable string) (*sql.DB, *SQLDataset, *SQLDataset, error) {
	if driver != "sqlite" && driver != "duckdb" {
		return nil, nil, nil, fmt.Errorf("unsupported driver %q (want sqlite or duckdb)", driver)
	}

	db, err := sql.Open(driver, beforePath)
	if err != nil {
		return nil, nil, nil, err
	}

	if afterPath != "" && afterPath != beforePath {
		attach := fmt.Sprintf("ATTACH DATABASE '%s' AS after_src", afterPath)
		if driver == "duckdb" {
			attach = fmt.Sprintf("ATTACH '%s' AS after_src (READ_ONLY)", afterPath)
		}
		if _, err := db.Exec(attach); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("attach %s: %w", afterPath, err)
		}
		afterTable = "after_src." + afterTable
	}

	before, err := NewSQLDataset(db, beforeTable)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	after, err := NewSQLDataset(db, afterTable)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return db, before, after, nil
}

func (d *SQLDataset) derive(cols []string, query string, args []any) *SQLDataset {
	return &SQLDataset{db: d.db, cols: cols, query: query, args: args}
}

func (d *SQLDataset) Columns() []string {
	return append([]string(nil), d.cols...)
}

func (d *SQLDataset) Count() (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS t", d.query)
	if err := d.db.QueryRow(query, d.args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *SQLDataset) NullCounts(cols ...string) (map[string]int64, error) {
	if len(cols) == 0 {
		cols = d.cols
	}
	exprs := make([]string, 0, len(cols))
	for _, c := range cols {
		exprs = append(exprs, fmt.Sprintf("COUNT(CASE WHEN %s IS NULL THEN 1 END) AS %s", quoteIdent(c), quoteIdent(c)))
	}
	query := fmt.Sprintf("SELECT %s FROM (%s) AS t", strings.Join(exprs, ", "), d.query)

	counts := make([]int64, len(cols))
	ptrs := make([]any, len(cols))
	for i := range counts {
		ptrs[i] = &counts[i]
	}
	if err := d.db.QueryRow(query, d.args...).Scan(ptrs...); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(cols))
	for i, c := range cols {
		out[c] = counts[i]
	}
	return out, nil
}

func (d *SQLDataset) Join(right Dataset, on string, leftPrefix, rightPrefix string) (Dataset, error) {
	r, ok := right.(*SQLDataset)
	if !ok {
		return nil, fmt.Errorf("sql dataset can only join another sql dataset, got %T", right)
	}
	if r.db != d.db {
		return nil, fmt.Errorf("cannot join datasets from different connections")
	}

	selects := []string{fmt.Sprintf("l.%s AS %s", quoteIdent(on), quoteIdent(on))}
	outCols := []string{on}
	for _, c := range d.cols {
		if c != on {
			selects = append(selects, fmt.Sprintf("l.%s AS %s", quoteIdent(c), quoteIdent(leftPrefix+c)))
			outCols = append(outCols, leftPrefix+c)
		}
	}
	for _, c := range r.cols {
		if c != on {
			selects = append(selects, fmt.Sprintf("r.%s AS %s", quoteIdent(c), quoteIdent(rightPrefix+c)))
			outCols = append(outCols, rightPrefix+c)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM (%s) AS l INNER JOIN (%s) AS r ON l.%s = r.%s",
		strings.Join(selects, ", "), d.query, r.query, quoteIdent(on), quoteIdent(on))
	args := append(append([]any(nil), d.args...), r.args...)
	return d.derive(outCols, query, args), nil
}

func (d *SQLDataset) WithNullCount(name string, over []string) (Dataset, error) {
	if len(over) == 0 {
		return nil, fmt.Errorf("WithNullCount %q: no columns given", name)
	}
	terms := make([]string, 0, len(over))
	for _, c := range over {
		terms = append(terms, fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END", quoteIdent(c)))
	}
	query := fmt.Sprintf("SELECT t.*, (%s) AS %s FROM (%s) AS t",
		strings.Join(terms, " + "), quoteIdent(name), d.query)
	return d.derive(append(d.Columns(), name), query, d.args), nil
}

func (d *SQLDataset) WhereNotEqual(a, b string) (Dataset, error) {
	query := fmt.Sprintf("SELECT * FROM (%s) AS t WHERE %s <> %s", d.query, quoteIdent(a), quoteIdent(b))
	return d.derive(d.Columns(), query, d.args), nil
}

func (d *SQLDataset) WhereIn(col string, values []any) (Dataset, error) {
	if len(values) == 0 {
		query := fmt.Sprintf("SELECT * FROM (%s) AS t WHERE 1 = 0", d.query)
		return d.derive(d.Columns(), query, d.args), nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	query := fmt.Sprintf("SELECT * FROM (%s) AS t WHERE %s IN (%s)", d.query, quoteIdent(col), placeholders)
	args := append(append([]any(nil), d.args...), values...)
	return d.derive(d.Columns(), query, args), nil
}

func (d *SQLDataset) Select(cols ...string) (Dataset, error) {
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, quoteIdent(c))
	}
	query := fmt.Sprintf("SELECT %s FROM (%s) AS t", strings.Join(quoted, ", "), d.query)
	return d.derive(append([]string(nil), cols...), query, d.args), nil
}

func (d *SQLDataset) Collect() ([]Row, error) {
	rows, err := d.db.Query(d.query, d.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// quoteIdent double-quotes an identifier; works for both sqlite and duckdb.
func quoteIdent(c string) string {
	return `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
}
