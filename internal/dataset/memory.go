package dataset

import (
	"fmt"
)

// Table is an eager in-memory Dataset. Rows are positional and share the
// column order of the table. Useful for tests and for small comparisons that
// never touch a database file.
type Table struct {
	cols []string
	idx  map[string]int
	rows [][]any
}

// NewTable builds an in-memory table. Rows shorter than the column list are
// padded with nulls.
func NewTable(cols []string, rows [][]any) *Table {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	padded := make([][]any, 0, len(rows))
	for _, r := range rows {
		if len(r) < len(cols) {
			p := make([]any, len(cols))
			copy(p, r)
			r = p
		}
		padded = append(padded, r)
	}
	return &Table{cols: append([]string(nil), cols...), idx: idx, rows: padded}
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

func (t *Table) Count() (int64, error) {
	return int64(len(t.rows)), nil
}

func (t *Table) colIndex(c string) (int, error) {
	i, ok := t.idx[c]
	if !ok {
		return 0, fmt.Errorf("column %q not found", c)
	}
	return i, nil
}

func (t *Table) NullCounts(cols ...string) (map[string]int64, error) {
	if len(cols) == 0 {
		cols = t.cols
	}
	counts := make(map[string]int64, len(cols))
	for _, c := range cols {
		i, err := t.colIndex(c)
		if err != nil {
			return nil, err
		}
		var n int64
		for _, r := range t.rows {
			if r[i] == nil {
				n++
			}
		}
		counts[c] = n
	}
	return counts, nil
}

// Join hash-joins against any Dataset by materializing the right side.
// Duplicate key values multiply: every left match pairs with every right
// match, same as a SQL inner join.
func (t *Table) Join(right Dataset, on string, leftPrefix, rightPrefix string) (Dataset, error) {
	li, err := t.colIndex(on)
	if err != nil {
		return nil, err
	}
	rightCols := right.Columns()
	if !containsColumn(rightCols, on) {
		return nil, fmt.Errorf("column %q not found", on)
	}
	rightRows, err := right.Collect()
	if err != nil {
		return nil, err
	}

	outCols := []string{on}
	for _, c := range t.cols {
		if c != on {
			outCols = append(outCols, leftPrefix+c)
		}
	}
	for _, c := range rightCols {
		if c != on {
			outCols = append(outCols, rightPrefix+c)
		}
	}

	byKey := make(map[any][]Row)
	for _, r := range rightRows {
		k := r[on]
		byKey[k] = append(byKey[k], r)
	}

	var outRows [][]any
	for _, lr := range t.rows {
		key := lr[li]
		for _, rr := range byKey[key] {
			row := make([]any, 0, len(outCols))
			row = append(row, key)
			for i, c := range t.cols {
				if c != on {
					row = append(row, lr[i])
				}
			}
			for _, c := range rightCols {
				if c != on {
					row = append(row, rr[c])
				}
			}
			outRows = append(outRows, row)
		}
	}
	return NewTable(outCols, outRows), nil
}

func (t *Table) WithNullCount(name string, over []string) (Dataset, error) {
	if len(over) == 0 {
		return nil, fmt.Errorf("WithNullCount %q: no columns given", name)
	}
	idxs := make([]int, 0, len(over))
	for _, c := range over {
		i, err := t.colIndex(c)
		if err != nil {
			return nil, err
		}
		idxs = append(idxs, i)
	}
	outCols := append(t.Columns(), name)
	outRows := make([][]any, 0, len(t.rows))
	for _, r := range t.rows {
		var n int64
		for _, i := range idxs {
			if r[i] == nil {
				n++
			}
		}
		row := make([]any, 0, len(outCols))
		row = append(row, r...)
		row = append(row, n)
		outRows = append(outRows, row)
	}
	return NewTable(outCols, outRows), nil
}

func (t *Table) WhereNotEqual(a, b string) (Dataset, error) {
	ai, err := t.colIndex(a)
	if err != nil {
		return nil, err
	}
	bi, err := t.colIndex(b)
	if err != nil {
		return nil, err
	}
	var outRows [][]any
	for _, r := range t.rows {
		if r[ai] != r[bi] {
			outRows = append(outRows, r)
		}
	}
	return NewTable(t.cols, outRows), nil
}

func (t *Table) WhereIn(col string, values []any) (Dataset, error) {
	i, err := t.colIndex(col)
	if err != nil {
		return nil, err
	}
	member := make(map[any]struct{}, len(values))
	for _, v := range values {
		member[v] = struct{}{}
	}
	var outRows [][]any
	for _, r := range t.rows {
		if _, ok := member[r[i]]; ok {
			outRows = append(outRows, r)
		}
	}
	return NewTable(t.cols, outRows), nil
}

func (t *Table) Select(cols ...string) (Dataset, error) {
	idxs := make([]int, 0, len(cols))
	for _, c := range cols {
		i, err := t.colIndex(c)
		if err != nil {
			return nil, err
		}
		idxs = append(idxs, i)
	}
	outRows := make([][]any, 0, len(t.rows))
	for _, r := range t.rows {
		row := make([]any, 0, len(idxs))
		for _, i := range idxs {
			row = append(row, r[i])
		}
		outRows = append(outRows, row)
	}
	return NewTable(cols, outRows), nil
}

func (t *Table) Collect() ([]Row, error) {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		row := make(Row, len(t.cols))
		for i, c := range t.cols {
			row[c] = r[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func containsColumn(cols []string, c string) bool {
	for _, x := range cols {
		if x == c {
			return true
		}
	}
	return false
}
